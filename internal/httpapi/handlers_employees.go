package httpapi

import (
	"net/http"

	"superpos/backend/internal/domain"
)

func (a *API) handleListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := a.service.ListEmployees(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{
		"count":     len(employees),
		"employees": employees,
	})
}

func (a *API) handleCreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req domain.EmployeeCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	employee, err := a.service.CreateEmployee(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeOK(w, http.StatusCreated, map[string]any{
		"message":  "Employee created successfully",
		"employee": employee,
	})
}

func (a *API) handleDeleteEmployee(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if err := a.service.DeleteEmployee(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"message": "Employee deleted successfully"})
}
