package config

type WorkerKeyStruct struct {
	EnrollmentJobsQueue string
}

var WorkerKey = &WorkerKeyStruct{
	EnrollmentJobsQueue: "enrollment_jobs_queue",
}
