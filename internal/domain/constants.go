package domain

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

const (
	StatusPending     = "pending"
	StatusApproved    = "approved"
	StatusDisapproved = "disapproved"
)

const (
	RedemptionPending  = "pending"
	RedemptionApproved = "approved"
	RedemptionRejected = "rejected"
)

// History actions as the backend records them.
const (
	ActionScan        = "scan"
	ActionPointAdd    = "point_add"
	ActionPointRedeem = "point_redeem"
	ActionRedemption  = "redemption"
	ActionCashReward  = "cash_reward"
)

const (
	AdjustAdd    = "add"
	AdjustRedeem = "redeem"
)

// Manual adjustments must be a multiple of AdjustStep within [AdjustMin, AdjustMax].
const (
	AdjustMin  = 50
	AdjustMax  = 10000
	AdjustStep = 50
)

// Push event kinds.
const (
	EventRegister            = "register"
	EventUserUpdated         = "user:updated"
	EventUserSelfUpdated     = "user:selfUpdated"
	EventUserDeleted         = "user:deleted"
	EventUserPendingApproval = "user:pendingApproval"
	EventPointsUpdated       = "points:updated"
	EventBarcodeUpdated      = "barcode:updated"
	EventBarcodeDeleted      = "barcode:deleted"
	EventBarcodeScanned      = "barcodeScanned"
	EventRangeUpdated        = "range:updated"
	EventRangeCreated        = "barcodeRangeCreated"
	EventRewardUpdated       = "reward:updated"
	EventRewardCreated       = "rewardCreated"
	EventRewardDeleted       = "reward:deleted"
	EventRedemptionUpdated   = "redemption:updated"
	EventNotificationCreated = "notificationCreated"
	EventNotificationUpdated = "notification:updated"
	EventHistoryUpdated      = "history:updated"
	EventUserHistoryUpdated  = "userHistoryUpdated"
	EventMetricsUpdated      = "metrics:updated"
)
