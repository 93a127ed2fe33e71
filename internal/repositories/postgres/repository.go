package postgres

import (
	"github.com/openlms/assignment-service/internal/repositories"
	"gorm.io/gorm"
)

type repository struct {
	assignment repositories.AssignmentRepository
	submission repositories.SubmissionRepository
	user       repositories.UserRepository
}

// NewRepository wires the gorm-backed repositories into the aggregate
// Repository interface.
func NewRepository(db *gorm.DB) repositories.Repository {
	return &repository{
		assignment: NewAssignmentPostgreSQL(db),
		submission: NewSubmissionPostgreSQL(db),
		user:       NewUserPostgreSQL(db),
	}
}

func (r *repository) Assignment() repositories.AssignmentRepository {
	return r.assignment
}

func (r *repository) Submission() repositories.SubmissionRepository {
	return r.submission
}

func (r *repository) User() repositories.UserRepository {
	return r.user
}
