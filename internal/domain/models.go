package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Role string

const (
	RoleCashier Role = "Cashier"
	RoleAdmin   Role = "Admin"
)

func (r Role) Valid() bool {
	return r == RoleCashier || r == RoleAdmin
}

// Identity is the authenticated principal attached to a request.
type Identity struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

type Employee struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (e Employee) Identity() Identity {
	return Identity{ID: e.ID, Username: e.Username, Role: e.Role}
}

// DisplayName falls back to the username when no name is on file.
func (e Employee) DisplayName() string {
	return DisplayName(e.FirstName, e.LastName, e.Username)
}

func DisplayName(first, last, username string) string {
	full := strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
	if full == "" {
		return username
	}
	return full
}

// EmployeeAccount is an Employee together with its stored credential.
type EmployeeAccount struct {
	Employee
	PasswordHash string `json:"-"`
}

type EmployeeCreateRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Role      Role   `json:"role"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	Refresh string `json:"refresh"`
}

type LoginResponse struct {
	Access  string   `json:"access"`
	Refresh string   `json:"refresh"`
	User    Identity `json:"user"`
}

type Product struct {
	ID            int64           `json:"id"`
	SKU           string          `json:"sku"`
	Name          string          `json:"name"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	Cost          decimal.Decimal `json:"cost"`
	Category      string          `json:"category"`
	StockQuantity int             `json:"stock_quantity"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

type ProductCreateRequest struct {
	SKU           string          `json:"sku"`
	Name          string          `json:"name"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	Cost          decimal.Decimal `json:"cost"`
	Category      string          `json:"category"`
	StockQuantity int             `json:"stock_quantity"`
}

type ProductUpdateRequest struct {
	SKU           *string          `json:"sku,omitempty"`
	Name          *string          `json:"name,omitempty"`
	UnitPrice     *decimal.Decimal `json:"unit_price,omitempty"`
	Cost          *decimal.Decimal `json:"cost,omitempty"`
	Category      *string          `json:"category,omitempty"`
	StockQuantity *int             `json:"stock_quantity,omitempty"`
}

type InventoryUpdateRequest struct {
	StockQuantity    *int   `json:"stock_quantity"`
	AdjustmentReason string `json:"adjustment_reason"`
}

type ProductFilter struct {
	Search   string
	Category string
	// MaxStock limits results to stock_quantity <= *MaxStock.
	MaxStock *int
	Offset   int
	Limit    int
}

type StockAdjustment struct {
	ID               int64     `json:"id"`
	ProductID        int64     `json:"product_id"`
	PreviousQuantity int       `json:"previous_quantity"`
	NewQuantity      int       `json:"new_quantity"`
	Reason           string    `json:"reason"`
	AdjustedBy       string    `json:"adjusted_by"`
	CreatedAt        time.Time `json:"created_at"`
}

type PriceChange struct {
	ID           int64           `json:"id"`
	ProductID    int64           `json:"product_id"`
	OldUnitPrice decimal.Decimal `json:"old_unit_price"`
	NewUnitPrice decimal.Decimal `json:"new_unit_price"`
	OldCost      decimal.Decimal `json:"old_cost"`
	NewCost      decimal.Decimal `json:"new_cost"`
	ChangedBy    string          `json:"changed_by"`
	ChangedAt    time.Time       `json:"changed_at"`
}
