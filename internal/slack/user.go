package slack

// UserRecord wraps the raw users.info profile for the host framework.
type UserRecord struct {
	raw map[string]interface{}
}

// NewUserRecord wraps a raw platform user object.
func NewUserRecord(raw map[string]interface{}) *UserRecord {
	if raw == nil {
		raw = map[string]interface{}{}
	}
	return &UserRecord{raw: raw}
}

// ID returns the platform user id.
func (u *UserRecord) ID() string {
	return stringField(u.raw, "id")
}

// Username returns the platform handle.
func (u *UserRecord) Username() string {
	return stringField(u.raw, "name")
}

// FirstName returns the profile first name, when present.
func (u *UserRecord) FirstName() string {
	return stringField(u.profile(), "first_name")
}

// LastName returns the profile last name, when present.
func (u *UserRecord) LastName() string {
	return stringField(u.profile(), "last_name")
}

// Info returns the raw platform profile record.
func (u *UserRecord) Info() map[string]interface{} {
	return u.raw
}

// IsBot reports whether the account is a bot user.
func (u *UserRecord) IsBot() bool {
	isBot, _ := u.raw["is_bot"].(bool)
	return isBot
}

// BotID returns the profile bot id for bot accounts.
func (u *UserRecord) BotID() string {
	return stringField(u.profile(), "bot_id")
}

func (u *UserRecord) profile() map[string]interface{} {
	profile, _ := u.raw["profile"].(map[string]interface{})
	return profile
}
