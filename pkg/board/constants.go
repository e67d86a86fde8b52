package board

const (
	// SettingGoldCosts keys the size-to-price table in the settings store.
	SettingGoldCosts = "gold_costs"
	// SettingAdminPasswordHash keys the bcrypt hash of the admin password.
	SettingAdminPasswordHash = "admin_password_hash"

	operationCreateRequest  = "create_request"
	operationResolveRequest = "resolve_request"
	operationUnlockSection  = "unlock_section"

	operationStatusOK    = "ok"
	operationStatusError = "error"

	fallbackSizeKey = "1x1"
)
