package repositories

import (
	"github.com/AntonVanke/xuexinwang/internal/db"
)

// Repositories holds all the repository instances
type Repositories struct {
	StudentRepository *StudentRepository
	AdminRepository   *AdminRepository
}

// NewRepositories initializes all repositories
func NewRepositories(database *db.Database) *Repositories {
	sb := database.Builder()
	return &Repositories{
		StudentRepository: NewStudentRepository(database.DB, sb),
		AdminRepository:   NewAdminRepository(database.DB, sb),
	}
}
