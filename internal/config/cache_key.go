package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// ParticipantSessionKey returns the cache key holding the JTI of a participant's active login
func (r *CacheKeyStruct) ParticipantSessionKey(participantID int64) string {
	return fmt.Sprintf("login:%d", participantID)
}

// ExamSessionStartKey returns the cache key for a participant's personal exam start
func (r *CacheKeyStruct) ExamSessionStartKey(examID, participantID int64) string {
	return fmt.Sprintf("participant:%d:exam:%d:session_start", participantID, examID)
}

// JobKey returns the cache key storing a background job's status document
func (r *CacheKeyStruct) JobKey(jobID string) string {
	return fmt.Sprintf("job:%s", jobID)
}

var CacheKey = NewCacheKeyStruct()
