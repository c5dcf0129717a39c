package resilience

import "time"

// Message is the display bundle for one taxonomy member.
type Message struct {
	Title      string
	Message    string
	Suggestion string
	Icon       string
}

// MessageView is a Message combined with the per-failure passthrough fields.
type MessageView struct {
	Message

	Severity  Severity
	Retryable bool
	Timestamp time.Time
}

// UserMessage resolves the display bundle for a classification. Every
// surfaced failure gets a title, message, and suggestion regardless of its
// root cause. The table must stay exhaustive over AllTypes; a package test
// fails on any gap.
func UserMessage(c Classification) MessageView {
	m, ok := messageTable[c.Type]
	if !ok {
		m = messageTable[TypeUnknown]
	}

	return MessageView{
		Message:   m,
		Severity:  c.Severity,
		Retryable: c.Retryable,
		Timestamp: c.Timestamp,
	}
}

var messageTable = map[ErrorType]Message{
	TypeNetwork: {
		Title:      "Connection Problem",
		Message:    "We could not reach the equipment service.",
		Suggestion: "Check your network connection and try again.",
		Icon:       "wifi-off",
	},
	TypeNetworkTimeout: {
		Title:      "Request Timed Out",
		Message:    "The equipment service took too long to respond.",
		Suggestion: "The service may be busy. Try again in a moment.",
		Icon:       "clock",
	},
	TypeNetworkOffline: {
		Title:      "You Are Offline",
		Message:    "No network connection is available.",
		Suggestion: "Reconnect to the network and try again.",
		Icon:       "cloud-off",
	},
	TypeAuthRequired: {
		Title:      "Sign-In Needed",
		Message:    "The sign-in window was closed or blocked.",
		Suggestion: "Allow pop-ups for this site and sign in again.",
		Icon:       "log-in",
	},
	TypeAuthExpired: {
		Title:      "Session Expired",
		Message:    "Your session is no longer valid.",
		Suggestion: "Sign in again to continue.",
		Icon:       "key",
	},
	TypePermissionDenied: {
		Title:      "Access Denied",
		Message:    "You do not have permission to perform this action.",
		Suggestion: "Contact an administrator if you believe this is a mistake.",
		Icon:       "shield-off",
	},
	TypePermission: {
		Title:      "Permission Problem",
		Message:    "This action could not be authorized.",
		Suggestion: "Try again, or contact an administrator.",
		Icon:       "shield",
	},
	TypeValidation: {
		Title:      "Check Your Input",
		Message:    "Some of the submitted information is not acceptable.",
		Suggestion: "Review the highlighted fields and resubmit.",
		Icon:       "alert-circle",
	},
	TypeValidationRequired: {
		Title:      "Missing Information",
		Message:    "A required field was left empty.",
		Suggestion: "Fill in all required fields and resubmit.",
		Icon:       "alert-circle",
	},
	TypeValidationFormat: {
		Title:      "Invalid Format",
		Message:    "A field does not match the expected format.",
		Suggestion: "Correct the highlighted field and resubmit.",
		Icon:       "alert-circle",
	},
	TypeValidationDuplicate: {
		Title:      "Duplicate Entry",
		Message:    "An identical record already exists.",
		Suggestion: "Use the existing record or change the identifying fields.",
		Icon:       "copy",
	},
	TypeStore: {
		Title:      "Storage Problem",
		Message:    "The inventory store reported an error.",
		Suggestion: "Try again shortly.",
		Icon:       "database",
	},
	TypeStoreUnavailable: {
		Title:      "Service Unavailable",
		Message:    "The inventory store is temporarily unavailable.",
		Suggestion: "Wait a moment and try again.",
		Icon:       "database",
	},
	TypeStoreQuotaExceeded: {
		Title:      "Service Limit Reached",
		Message:    "The inventory store has reached its usage limit.",
		Suggestion: "Wait a while before retrying, or contact an administrator.",
		Icon:       "database",
	},
	TypeStoreRulesDenied: {
		Title:      "Operation Not Allowed",
		Message:    "The inventory store rejected this change.",
		Suggestion: "Refresh the record and try again.",
		Icon:       "slash",
	},
	TypeDomain: {
		Title:      "Profile Problem",
		Message:    "Your borrower profile could not be processed.",
		Suggestion: "Try again, or review your profile details.",
		Icon:       "user",
	},
	TypeDomainNotFound: {
		Title:      "Profile Not Found",
		Message:    "No borrower profile exists for this account.",
		Suggestion: "Complete your borrower profile before borrowing equipment.",
		Icon:       "user-x",
	},
	TypeDomainIncomplete: {
		Title:      "Profile Incomplete",
		Message:    "Your borrower profile is missing required details.",
		Suggestion: "Fill in the missing profile fields and try again.",
		Icon:       "user",
	},
	TypeDomainDuplicate: {
		Title:      "Profile Already Exists",
		Message:    "A borrower profile already exists for this account.",
		Suggestion: "Edit the existing profile instead of creating a new one.",
		Icon:       "users",
	},
	TypeCircuitOpen: {
		Title:      "Service Paused",
		Message:    "Requests to a failing service are temporarily paused.",
		Suggestion: "Wait a minute and try again.",
		Icon:       "pause-circle",
	},
	TypeUnknown: {
		Title:      "Something Went Wrong",
		Message:    "An unexpected error occurred.",
		Suggestion: "Try again. If the problem persists, contact support.",
		Icon:       "help-circle",
	},
	TypeSystem: {
		Title:      "Internal Error",
		Message:    "An internal error occurred while processing the request.",
		Suggestion: "This has been logged. Please try again later.",
		Icon:       "alert-triangle",
	},
}
