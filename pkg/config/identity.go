package config

// IdentityConfig describes where the persistent device id lives.
type IdentityConfig struct {
    DeviceID uint32 `mapstructure:"device_id"` // non-zero pins the id and bypasses the file
    IDFile   string `mapstructure:"id_file"`   // relative paths resolve against data_dir
}
