package domain

// Driver represents the type of database engine a probe runs against.
type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverMySQL    Driver = "mysql"
	DriverPostgres Driver = "postgres"
)

// Target identifies the physical store a single validation call runs against.
// It is supplied by the caller per call; the engine owns no configuration.
type Target struct {
	Driver   Driver `json:"driver"`
	Host     string `json:"host"`     // hostname or file path (sqlite)
	Port     int    `json:"port"`     // 0 for sqlite
	Database string `json:"database"` // db name, empty for sqlite
	Username string `json:"username"`
	Password string `json:"password"`
	SSLMode  string `json:"sslMode"`
}

// SQLiteTarget is a convenience constructor for file-backed SQLite targets.
func SQLiteTarget(path string) Target {
	return Target{Driver: DriverSQLite, Host: path}
}

// Key returns a stable identity for connector pooling.
func (t Target) Key() string {
	return string(t.Driver) + "://" + t.Username + "@" + t.Host + "/" + t.Database
}
