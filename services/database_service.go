package services

// Database is the optional sink for operational log records. Tokens are never written here.
type Database interface {
	WriteLogMessage(data Data) error
	Close() error
}

type Data interface {
	DataType() string
}
