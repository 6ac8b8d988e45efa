package config

const (
	// Roles
	RoleUser  = "user"
	RoleAdmin = "admin"

	// Complaint statuses
	StatusReceived = "received"
	StatusInReview = "in_review"
	StatusResolved = "resolved"
	StatusRejected = "rejected"

	// Defaults
	DefaultPostCategory      = "general"
	DefaultPostStatus        = "open"
	DefaultComplaintCategory = "general"
	MyDataSource             = "MOCK"

	// Listing
	PageSize          = 10
	DashboardLogLimit = 20
	LatestItemsLimit  = 5

	// Request capture limits for audit rows
	MaxAuditIPLength        = 64
	MaxAuditUserAgentLength = 255
	MaxAuditQueryLength     = 512
)

var Roles = []string{RoleUser, RoleAdmin}

// ComplaintStatuses is ordered the way the workflow normally progresses.
var ComplaintStatuses = []string{StatusReceived, StatusInReview, StatusResolved, StatusRejected}

var ComplaintCategories = []string{
	"general",
	"medical",
	"billing",
	"privacy",
	"facility_access",
	"vaccination",
	"digital_service",
}

var PostCategories = []string{"general", "question", "suggestion", "review"}

var PostAttachmentExtensions = map[string]bool{
	".pdf":  true,
	".txt":  true,
	".doc":  true,
	".docx": true,
	".xls":  true,
	".xlsx": true,
	".hwp":  true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
}

var ProfileImageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
}

// Contains reports whether value is one of the allowed values.
func Contains(allowed []string, value string) bool {
	for _, v := range allowed {
		if v == value {
			return true
		}
	}
	return false
}
