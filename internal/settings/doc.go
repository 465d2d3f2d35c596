// Package settings persists user settings in a small SQLite database under
// the state directory: the API credentials and, per target database, the
// last discovered schema snapshot (status column kind plus tag and status
// options with their colors).
//
// Credentials saved here take precedence over the config file and
// environment. ResolveCredentials fails with services.ErrSettingsMissing
// before any network call when the token or database id is still empty.
package settings
