package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrSessionInvalidated ErrCode = "SESSION_INVALIDATED"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden             ErrCode = "FORBIDDEN"
	ErrParticipantAccessOnly ErrCode = "PARTICIPANT_ACCESS_ONLY"
	ErrOrganizerAccessOnly   ErrCode = "ORGANIZER_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// ─── Exam-specific ─────────────────────────────────────────────────
	ErrExamNotOpen            ErrCode = "EXAM_NOT_OPEN"
	ErrSubmissionLimit        ErrCode = "SUBMISSION_LIMIT_REACHED"
	ErrNotEnrolled            ErrCode = "NOT_ENROLLED"
	ErrTestCasesDisabled      ErrCode = "TEST_CASES_DISABLED"
	ErrAllocationConflict     ErrCode = "ALLOCATION_CONFLICT"
	ErrAlreadyCommitteeMember ErrCode = "ALREADY_COMMITTEE_MEMBER"

	// ─── Jobs ──────────────────────────────────────────────────────────
	ErrJobNotFound ErrCode = "JOB_NOT_FOUND"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Username atau kata sandi salah."
	case ErrSessionInvalidated:
		return "Sesi Anda telah berakhir. Silakan login kembali."
	case ErrTokenRequired:
		return "Token autentikasi diperlukan."
	case ErrTokenInvalid:
		return "Token autentikasi tidak valid."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "Anda tidak memiliki izin untuk mengakses sumber daya ini."
	case ErrParticipantAccessOnly:
		return "Sumber daya ini terbatas untuk peserta."
	case ErrOrganizerAccessOnly:
		return "Sumber daya ini terbatas untuk panitia."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validasi gagal. Silakan periksa masukan Anda."
	case ErrInvalidID:
		return "Format ID tidak valid."
	case ErrInvalidPayload:
		return "Payload permintaan tidak valid."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Sumber daya tidak ditemukan."
	case ErrConflict:
		return "Sumber daya sudah ada."

	// ─── Exam-specific ─────────────────────────────────────────────────
	case ErrExamNotOpen:
		return "Ujian tidak sedang berlangsung untuk Anda."
	case ErrSubmissionLimit:
		return "Batas jumlah pengumpulan untuk soal ini sudah tercapai."
	case ErrNotEnrolled:
		return "Anda tidak terdaftar pada ujian ini."
	case ErrTestCasesDisabled:
		return "Soal ini tidak menggunakan test case."
	case ErrAllocationConflict:
		return "Pembagian test case bertabrakan dengan proses lain. Silakan coba lagi."
	case ErrAlreadyCommitteeMember:
		return "Pengguna sudah menjadi anggota panitia ujian ini."

	// ─── Jobs ──────────────────────────────────────────────────────────
	case ErrJobNotFound:
		return "Pekerjaan latar belakang tidak ditemukan atau sudah kedaluwarsa."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Terlalu banyak permintaan. Silakan coba lagi nanti."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "Terjadi kesalahan server internal."
	default:
		return "Terjadi kesalahan yang tidak terduga."
	}
}
