package database

import "os"

// DatabaseExists checks if a database file exists
func DatabaseExists(dbPath string) bool {
	if dbPath == "" {
		return false
	}
	_, err := os.Stat(dbPath)
	return !os.IsNotExist(err)
}
