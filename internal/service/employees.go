package service

import (
	"context"
	"net/mail"
	"strings"

	"superpos/backend/internal/auth"
	"superpos/backend/internal/domain"
	"superpos/backend/internal/logger"
	"superpos/backend/internal/store"
)

const minPasswordLength = 8

func (s *Service) ListEmployees(ctx context.Context) ([]domain.Employee, error) {
	if _, err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return nil, err
	}
	return s.repo.ListEmployees(ctx)
}

func (s *Service) CreateEmployee(ctx context.Context, req domain.EmployeeCreateRequest) (domain.Employee, error) {
	actor, err := requireRole(ctx, domain.RoleAdmin)
	if err != nil {
		return domain.Employee{}, err
	}
	return s.createEmployee(ctx, req, actor.Username)
}

// BootstrapAdmin creates an Admin account without a caller. It backs the
// createadmin command.
func (s *Service) BootstrapAdmin(ctx context.Context, req domain.EmployeeCreateRequest) (domain.Employee, error) {
	req.Role = domain.RoleAdmin
	return s.createEmployee(ctx, req, "bootstrap")
}

func (s *Service) createEmployee(ctx context.Context, req domain.EmployeeCreateRequest, by string) (domain.Employee, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if req.Role == "" {
		req.Role = domain.RoleCashier
	}

	verr := &store.ValidationError{}
	if req.Username == "" {
		verr.Add("username", "this field is required")
	}
	if len(req.Password) < minPasswordLength {
		verr.Add("password", "must be at least 8 characters")
	}
	if !req.Role.Valid() {
		verr.Add("role", "must be Cashier or Admin")
	}
	if req.Email != "" {
		if _, err := mail.ParseAddress(req.Email); err != nil {
			verr.Add("email", "enter a valid email address")
		}
	}
	if err := verr.OrNil(); err != nil {
		return domain.Employee{}, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return domain.Employee{}, err
	}
	created, err := s.repo.CreateEmployee(ctx, domain.EmployeeAccount{
		Employee: domain.Employee{
			Username:  req.Username,
			FirstName: strings.TrimSpace(req.FirstName),
			LastName:  strings.TrimSpace(req.LastName),
			Email:     req.Email,
			Role:      req.Role,
			Active:    true,
		},
		PasswordHash: hash,
	})
	if err != nil {
		return domain.Employee{}, err
	}
	logger.Info("employee created", "employee_id", created.ID, "username", created.Username, "role", created.Role, "by", by)
	return *created, nil
}

func (s *Service) DeleteEmployee(ctx context.Context, id int64) error {
	actor, err := requireRole(ctx, domain.RoleAdmin)
	if err != nil {
		return err
	}
	if actor.ID == id {
		return store.NewValidationError("id", "you cannot delete your own account")
	}
	if err := s.repo.DeleteEmployee(ctx, id); err != nil {
		return err
	}
	logger.Info("employee deleted", "employee_id", id, "by", actor.Username)
	return nil
}
