package models

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

const (
	RoleSalesExecutive = "SALES_EXECUTIVE"
	RoleDirector       = "DIRECTOR"
	RoleTeamLead       = "TEAM_LEAD"
	RoleStoreManager   = "STORE_MANAGER"
)

// Table names the credential table a principal was loaded from. It travels
// inside refresh tokens so a refresh hits the same table as the login did.
type Table string

const (
	TableUsers         Table = "user"
	TableTeamLeads     Table = "team_lead"
	TableStoreManagers Table = "store_manager"
)

func (t Table) Valid() bool {
	switch t {
	case TableUsers, TableTeamLeads, TableStoreManagers:
		return true
	}
	return false
}

type User struct {
	ID             int64
	FullName       sql.NullString
	Username       string
	HashedPassword string
	Role           string
	StoreAssigned  sql.NullString
	CreatedAt      time.Time
}

// DisplayName prefers the full name and falls back to the login id.
func (u *User) DisplayName() string {
	if u.FullName.Valid && u.FullName.String != "" {
		return u.FullName.String
	}
	return u.Username
}

// Staff is a team lead or store manager account.
type Staff struct {
	ID             int64
	StaffID        string
	FullName       string
	HashedPassword string
	StoreAssigned  string
	CreatedAt      time.Time
}

// Credential is what login and refresh need from any of the three tables.
type Credential struct {
	Table          Table
	ID             int64
	Username       string
	FullName       string
	Role           string
	Store          string
	HashedPassword string
	RefreshToken   sql.NullString
}

type Lead struct {
	ID            int64
	LeadCode      string
	LeadCreatedAt time.Time
	CustomerName  string
	Phone         string
	Source        sql.NullString
	Location      sql.NullString
	District      sql.NullString
	Profile       sql.NullString

	AreaSqft         sql.NullInt64
	ProjectType      sql.NullString
	BoardType        sql.NullString
	MaterialBrand    sql.NullString
	Channel          sql.NullString
	ChannelThickness sql.NullString
	MaterialCategory sql.NullString
	MaterialQuantity sql.NullInt64
	AccessoryName    sql.NullString
	AccessoryQty     sql.NullInt64
	Urgency          string

	SalesExecutiveID int64
	Status           LeadStatus
	LastAction       sql.NullString

	LeadEndedAt        sql.NullTime
	QuotationCreatedAt sql.NullTime
	QuotationID        sql.NullString
	QuotationSnapshot  *QuotationSnapshot
	TotalEstimatedCost sql.NullInt64
	QuotationEndedAt   sql.NullTime

	ApproverRequestAt       sql.NullTime
	ApproverStatus          ApprovalStatus
	ApproverResponseAt      sql.NullTime
	ApproverRemarks         sql.NullString
	CustomerQuotationSentAt sql.NullTime
}

// EstimatedCost is the quoted total, zero when no quotation exists yet.
func (l *Lead) EstimatedCost() int64 {
	if l.TotalEstimatedCost.Valid {
		return l.TotalEstimatedCost.Int64
	}
	return 0
}

// QuotationLine is one priced row of a quotation.
type QuotationLine struct {
	Name      string  `json:"name"`
	Quantity  float64 `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	Total     float64 `json:"total"`
}

// QuotationSnapshot is the frozen quotation stored with a lead once it is
// sent for approval.
type QuotationSnapshot struct {
	Items      []QuotationLine `json:"items"`
	Subtotal   float64         `json:"subtotal"`
	Tax        float64         `json:"tax"`
	GrandTotal float64         `json:"grand_total"`
}

func (q *QuotationSnapshot) Value() (driver.Value, error) {
	if q == nil {
		return nil, nil
	}
	return json.Marshal(q)
}

func (q *QuotationSnapshot) Scan(src interface{}) error {
	return scanJSON(src, q)
}

type FollowUp struct {
	ID                int64
	LeadCode          string
	CurrentStage      sql.NullString
	NextFollowupDate  time.Time
	Reasons           sql.NullString
	StageSelectedAt   sql.NullTime
	FollowupUpdatedAt sql.NullTime
}

// StoreOrder tracks a lead after it has been handed to a store.
type StoreOrder struct {
	ID                      int64
	LeadCode                string
	StoreName               string
	HandoverAt              sql.NullTime
	PaymentMode             sql.NullString
	AdvanceReceivedAmount   int64
	AdvanceReceivedAmountAt sql.NullTime

	DriverName          sql.NullString
	DriverPhone         sql.NullString
	VehicleNumber       sql.NullString
	EstimatedDeliveryAt sql.NullTime

	Status                OrderStatus
	PendingToDispatchedAt sql.NullTime
	DeliveredAt           sql.NullTime
	Feedback              sql.NullString
	DispatchPaymentMode   sql.NullString
	DispatchReceived      sql.NullInt64
	DeliveryReceived      sql.NullInt64
	DeliveryPaymentMode   sql.NullString
}

// PaidSoFar sums what has been collected at each stage reached so far.
func (o *StoreOrder) PaidSoFar() int64 {
	paid := o.AdvanceReceivedAmount
	if o.DispatchReceived.Valid {
		paid += o.DispatchReceived.Int64
	}
	if o.DeliveryReceived.Valid {
		paid += o.DeliveryReceived.Int64
	}
	return paid
}

// OrderWithLead is a store order joined with its lead.
type OrderWithLead struct {
	Order *StoreOrder
	Lead  *Lead
}

// Balance is what the customer still owes on the order.
func (o *OrderWithLead) Balance() int64 {
	return o.Lead.EstimatedCost() - o.Order.PaidSoFar()
}

const (
	AttendancePresent = "Present"
	AttendanceLate    = "Late"
	AttendanceOnDuty  = "On Duty"
	AttendanceOnLeave = "On Leave"
	AttendanceAbsent  = "Absent"
)

type Attendance struct {
	ID       int64
	UserID   int64
	Date     time.Time
	CheckIn  time.Time
	CheckOut sql.NullTime
	Status   string
	Location sql.NullString
	IsLate   bool
}

const (
	LeavePending  = "Pending"
	LeaveApproved = "Approved"
	LeaveRejected = "Rejected"
)

// HandoverItem moves one lead to a colleague while the owner is on leave.
type HandoverItem struct {
	LeadID   int64 `json:"lead_id"`
	ToUserID int64 `json:"to_user_id"`
}

type HandoverPlan []HandoverItem

// DuplicateLead returns the first lead the plan lists more than once.
func (p HandoverPlan) DuplicateLead() (int64, bool) {
	seen := make(map[int64]bool, len(p))
	for _, item := range p {
		if seen[item.LeadID] {
			return item.LeadID, true
		}
		seen[item.LeadID] = true
	}
	return 0, false
}

func (p HandoverPlan) Value() (driver.Value, error) {
	if p == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(p)
}

func (p *HandoverPlan) Scan(src interface{}) error {
	return scanJSON(src, p)
}

type LeaveRequest struct {
	ID              int64
	UserID          int64
	StartDate       time.Time
	EndDate         time.Time
	DaysCount       int
	Reason          sql.NullString
	Status          string
	HandoverPlan    HandoverPlan
	RejectionReason sql.NullString
	ApprovedBy      sql.NullInt64
	CreatedAt       time.Time
}

type Category struct {
	ID            int64
	Name          string
	SubCategories []SubCategory
}

type SubCategory struct {
	ID         int64
	Name       string
	CategoryID int64
	Products   []Product
	Components []Component
}

type Product struct {
	ID       int64
	Name     string
	PriceStr sql.NullString
	PriceBar sql.NullString
}

type Component struct {
	ID       int64
	Name     string
	Type     string
	Variants []ComponentVariant
}

type ComponentVariant struct {
	ID         int64
	BrandName  sql.NullString
	Variant    sql.NullString
	PriceRange sql.NullString
}

func scanJSON(src interface{}, dst interface{}) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("unsupported json column type %T", src)
	}
}
