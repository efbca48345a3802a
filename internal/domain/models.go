package domain

import "time"

// Enumerations
const (
	RoleAdmin    UserRole = "admin"
	RoleManager  UserRole = "manager"
	RoleResident UserRole = "resident"

	BuildingActive            BuildingStatus = "active"
	BuildingInactive          BuildingStatus = "inactive"
	BuildingUnderConstruction BuildingStatus = "under_construction"

	UnitOccupied    UnitStatus = "occupied"
	UnitVacant      UnitStatus = "vacant"
	UnitMaintenance UnitStatus = "maintenance"

	CycleMonthly   BillingCycle = "monthly"
	CycleQuarterly BillingCycle = "quarterly"
	CycleAnnually  BillingCycle = "annually"
	CycleOneTime   BillingCycle = "one_time"

	PaymentPending PaymentStatus = "pending"
	PaymentPartial PaymentStatus = "partial"
	PaymentPaid    PaymentStatus = "paid"
	// PaymentOverdue is representable but no process sets it automatically;
	// kept for manual bookkeeping.
	PaymentOverdue PaymentStatus = "overdue"

	AnnouncementDraft     AnnouncementStatus = "draft"
	AnnouncementPublished AnnouncementStatus = "published"
	AnnouncementArchived  AnnouncementStatus = "archived"

	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"

	TargetAll       TargetRole = "all"
	TargetAdmins    TargetRole = "admin"
	TargetManagers  TargetRole = "manager"
	TargetResidents TargetRole = "resident"

	NotificationAnnouncement NotificationType = "announcement"
	NotificationBill         NotificationType = "bill"
	NotificationPayment      NotificationType = "payment"
	NotificationSystem       NotificationType = "system"

	CostPending  CostStatus = "pending"
	CostApproved CostStatus = "approved"
	CostPaid     CostStatus = "paid"
)

type UserRole string
type BuildingStatus string
type UnitStatus string
type BillingCycle string
type PaymentStatus string
type AnnouncementStatus string
type Priority string
type TargetRole string
type NotificationType string
type CostStatus string

// Money is an amount in the smallest currency unit (cents).
type Money struct {
	Amount   int64
	Currency string
}

type UserProfile struct {
	ID        int64
	Name      string
	Email     string
	Phone     string
	Role      UserRole
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

type Building struct {
	ID          int64
	Name        string
	Address     string
	TotalUnits  int
	ManagerID   *int64
	ManagerName string
	Status      BuildingStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   *time.Time
}

type Unit struct {
	ID            int64
	BuildingID    int64
	BuildingName  string
	UnitNumber    string
	Floor         int
	Area          float64
	Bedrooms      int
	Bathrooms     int
	ResidentID    *int64
	ResidentName  string
	ResidentEmail string
	Status        UnitStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
	DeletedAt     *time.Time
}

type BuildingCharge struct {
	ID            int64
	BuildingID    int64
	BuildingName  string
	ChargeType    string
	Amount        Money
	BillingCycle  BillingCycle
	EffectiveDate time.Time
	Description   string
	Active        bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
	DeletedAt     *time.Time
}

// Bill carries denormalized unit/building/resident fields captured at
// generation time. They are frozen snapshots and are never re-joined
// against the live records.
type Bill struct {
	ID            int64
	UnitID        int64
	UnitNumber    string
	BuildingID    int64
	BuildingName  string
	ResidentID    int64
	ResidentName  string
	BillingPeriod string // YYYY-MM
	TotalAmount   Money
	PaidAmount    Money
	PaymentStatus PaymentStatus
	DueDate       time.Time
	IssueDate     time.Time
	PaymentDate   *time.Time
	Lines         []BillLine
	Notes         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	DeletedAt     *time.Time
}

// BillLine is one charge snapshot inside a bill's breakdown.
type BillLine struct {
	ID         int64
	BillID     int64
	ChargeType string
	Amount     Money
}

type BuildingCost struct {
	ID             int64
	BuildingID     int64
	BuildingName   string
	CostType       string
	Description    string
	Amount         Money
	CostDate       time.Time
	RecordedBy     int64
	RecordedByName string
	Notes          string
	Status         CostStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
	DeletedAt      *time.Time
}

type Announcement struct {
	ID               int64
	Title            string
	Content          string
	Category         string
	Priority         Priority
	TargetRole       TargetRole
	TargetBuildingID *int64
	Status           AnnouncementStatus
	CreatedBy        int64
	PublishedAt      *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
	DeletedAt        *time.Time
}

type Notification struct {
	ID        int64
	UserID    int64
	Type      NotificationType
	Title     string
	Message   string
	Link      string
	RelatedID *int64
	ReadAt    *time.Time
	CreatedAt time.Time
	DeletedAt *time.Time
}

// Read reports whether the notification has been read.
func (n Notification) Read() bool { return n.ReadAt != nil }
