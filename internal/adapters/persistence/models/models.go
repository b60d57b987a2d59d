package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/angep72/Community-saver/internal/core/domain"
)

// ============================================================
// Users & Branches
// ============================================================

// User represents the users table. A user is a group member; the three
// Total* columns are derived caches over the member's ledger entries and are
// recomputed after every write (see services.TotalsService).
type User struct {
	ID                 uint                  `gorm:"primaryKey" json:"id"`
	FirstName          string                `gorm:"size:50;not null" json:"first_name"`
	LastName           string                `gorm:"size:50;not null" json:"last_name"`
	Email              string                `gorm:"uniqueIndex;size:100;not null" json:"email"`
	Password           string                `gorm:"size:255;not null" json:"-"`
	Phone              string                `gorm:"size:20" json:"phone"`
	Role               domain.Role           `gorm:"size:20;default:'member'" json:"role"`
	BranchID           *uint                 `gorm:"index" json:"branch_id"`
	TotalContributions float64               `gorm:"type:decimal(15,2);default:0" json:"total_contributions"`
	TotalLoans         float64               `gorm:"type:decimal(15,2);default:0" json:"total_loans"`
	TotalPenalties     float64               `gorm:"type:decimal(15,2);default:0" json:"total_penalties"`
	ApprovalStatus     domain.ApprovalStatus `gorm:"size:20;default:'pending'" json:"approval_status"`
	IsActive           bool                  `gorm:"default:true" json:"is_active"`
	CreatedAt          time.Time             `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time             `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt          gorm.DeletedAt        `gorm:"index" json:"-"`

	Branch *Branch `gorm:"foreignKey:BranchID" json:"branch,omitempty"`
}

func (User) TableName() string {
	return "users"
}

// FullName returns the member's display name.
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// UserResponse DTO
type UserResponse struct {
	ID                 uint                  `json:"id"`
	FirstName          string                `json:"first_name"`
	LastName           string                `json:"last_name"`
	Email              string                `json:"email"`
	Phone              string                `json:"phone,omitempty"`
	Role               domain.Role           `json:"role"`
	BranchID           *uint                 `json:"branch_id"`
	BranchName         string                `json:"branch_name,omitempty"`
	TotalContributions float64               `json:"total_contributions"`
	TotalLoans         float64               `json:"total_loans"`
	TotalPenalties     float64               `json:"total_penalties"`
	ApprovalStatus     domain.ApprovalStatus `json:"approval_status"`
	IsActive           bool                  `json:"is_active"`
	CreatedAt          time.Time             `json:"created_at"`
}

func (u *User) ToResponse() *UserResponse {
	resp := &UserResponse{
		ID:                 u.ID,
		FirstName:          u.FirstName,
		LastName:           u.LastName,
		Email:              u.Email,
		Phone:              u.Phone,
		Role:               u.Role,
		BranchID:           u.BranchID,
		TotalContributions: u.TotalContributions,
		TotalLoans:         u.TotalLoans,
		TotalPenalties:     u.TotalPenalties,
		ApprovalStatus:     u.ApprovalStatus,
		IsActive:           u.IsActive,
		CreatedAt:          u.CreatedAt,
	}
	if u.Branch != nil {
		resp.BranchName = u.Branch.Name
	}
	return resp
}

// Branch represents the branches table
type Branch struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Name      string         `gorm:"size:100;not null" json:"name"`
	Code      string         `gorm:"size:20;uniqueIndex;not null" json:"code"`
	LeadID    *uint          `json:"lead_id"`
	IsActive  bool           `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Lead *User `gorm:"foreignKey:LeadID" json:"lead,omitempty"`
}

func (Branch) TableName() string {
	return "branches"
}

// BranchResponse DTO
type BranchResponse struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	LeadID    *uint     `json:"lead_id"`
	LeadName  string    `json:"lead_name,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func (b *Branch) ToResponse() *BranchResponse {
	resp := &BranchResponse{
		ID:        b.ID,
		Name:      b.Name,
		Code:      b.Code,
		LeadID:    b.LeadID,
		IsActive:  b.IsActive,
		CreatedAt: b.CreatedAt,
	}
	if b.Lead != nil {
		resp.LeadName = b.Lead.FullName()
	}
	return resp
}

// ============================================================
// Ledger: contributions, loans, penalties
// ============================================================

// Contribution represents the contributions table. Date is the business
// timestamp: it drives the late-contribution fee and every allocation
// cutoff comparison. Penalty payments are stored as negative-amount entries
// of type penalty_payment so the pooled total reflects the deduction.
type Contribution struct {
	ID         uint                      `gorm:"primaryKey" json:"id"`
	UserID     uint                      `gorm:"not null;index" json:"user_id"`
	Amount     float64                   `gorm:"type:decimal(15,2);not null" json:"amount"`
	Type       domain.ContributionType   `gorm:"size:30;default:'monthly'" json:"type"`
	Date       time.Time                 `gorm:"not null;index" json:"date"`
	RecordedBy uint                      `gorm:"not null" json:"recorded_by"`
	BranchID   *uint                     `gorm:"index" json:"branch_id"`
	Status     domain.ContributionStatus `gorm:"size:20;default:'pending';index" json:"status"`
	Notes      string                    `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt  time.Time                 `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time                 `gorm:"autoUpdateTime" json:"updated_at"`

	User     *User   `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Recorder *User   `gorm:"foreignKey:RecordedBy" json:"recorder,omitempty"`
	Branch   *Branch `gorm:"foreignKey:BranchID" json:"branch,omitempty"`
}

func (Contribution) TableName() string {
	return "contributions"
}

// ContributionResponse DTO
type ContributionResponse struct {
	ID         uint                      `json:"id"`
	UserID     uint                      `json:"user_id"`
	MemberName string                    `json:"member_name,omitempty"`
	Amount     float64                   `json:"amount"`
	Type       domain.ContributionType   `json:"type"`
	Date       time.Time                 `json:"date"`
	RecordedBy uint                      `json:"recorded_by"`
	BranchID   *uint                     `json:"branch_id"`
	Status     domain.ContributionStatus `json:"status"`
	Notes      string                    `json:"notes,omitempty"`
	CreatedAt  time.Time                 `json:"created_at"`
}

func (c *Contribution) ToResponse() *ContributionResponse {
	resp := &ContributionResponse{
		ID:         c.ID,
		UserID:     c.UserID,
		Amount:     c.Amount,
		Type:       c.Type,
		Date:       c.Date,
		RecordedBy: c.RecordedBy,
		BranchID:   c.BranchID,
		Status:     c.Status,
		Notes:      c.Notes,
		CreatedAt:  c.CreatedAt,
	}
	if c.User != nil {
		resp.MemberName = c.User.FullName()
	}
	return resp
}

// Loan represents the loans table. TotalAmount is principal plus simple
// interest and is set once the rate is known, at approval:
// total = amount + amount*rate*duration/100.
type Loan struct {
	ID              uint              `gorm:"primaryKey" json:"id"`
	UserID          uint              `gorm:"not null;index" json:"user_id"`
	Amount          float64           `gorm:"type:decimal(15,2);not null" json:"amount"`
	InterestRate    float64           `gorm:"type:decimal(5,2);default:0" json:"interest_rate"`
	DurationMonths  int               `gorm:"not null" json:"duration_months"`
	Purpose         string            `gorm:"type:text" json:"purpose"`
	Status          domain.LoanStatus `gorm:"size:20;default:'pending';index" json:"status"`
	AppliedDate     time.Time         `gorm:"not null" json:"applied_date"`
	ApprovedDate    *time.Time        `json:"approved_date"`
	DisbursedDate   *time.Time        `json:"disbursed_date"`
	DueDate         *time.Time        `json:"due_date"`
	RepaidDate      *time.Time        `json:"repaid_date"`
	DefaultedDate   *time.Time        `json:"defaulted_date"`
	TotalAmount     float64           `gorm:"type:decimal(15,2);default:0" json:"total_amount"`
	AmountPaid      float64           `gorm:"type:decimal(15,2);default:0" json:"amount_paid"`
	RemainingAmount float64           `gorm:"type:decimal(15,2);default:0" json:"remaining_amount"`
	ApprovedBy      *uint             `json:"approved_by"`
	RejectionReason string            `gorm:"type:text" json:"rejection_reason,omitempty"`
	BranchID        *uint             `gorm:"index" json:"branch_id"`
	CreatedAt       time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt       gorm.DeletedAt    `gorm:"index" json:"-"`

	User     *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Approver *User `gorm:"foreignKey:ApprovedBy" json:"approver,omitempty"`
}

func (Loan) TableName() string {
	return "loans"
}

// InterestAmount returns the interest component of the loan, zero until the
// rate is set at approval.
func (l *Loan) InterestAmount() float64 {
	return l.TotalAmount - l.Amount
}

// LoanResponse DTO
type LoanResponse struct {
	ID              uint              `json:"id"`
	UserID          uint              `json:"user_id"`
	MemberName      string            `json:"member_name,omitempty"`
	Amount          float64           `json:"amount"`
	InterestRate    float64           `json:"interest_rate"`
	DurationMonths  int               `json:"duration_months"`
	Purpose         string            `json:"purpose,omitempty"`
	Status          domain.LoanStatus `json:"status"`
	AppliedDate     time.Time         `json:"applied_date"`
	ApprovedDate    *time.Time        `json:"approved_date"`
	DisbursedDate   *time.Time        `json:"disbursed_date"`
	DueDate         *time.Time        `json:"due_date"`
	RepaidDate      *time.Time        `json:"repaid_date"`
	TotalAmount     float64           `json:"total_amount"`
	AmountPaid      float64           `json:"amount_paid"`
	RemainingAmount float64           `json:"remaining_amount"`
	ApprovedBy      *uint             `json:"approved_by"`
	ApproverName    string            `json:"approver_name,omitempty"`
	RejectionReason string            `json:"rejection_reason,omitempty"`
	RiskScore       *float64          `json:"risk_score,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
}

func (l *Loan) ToResponse() *LoanResponse {
	resp := &LoanResponse{
		ID:              l.ID,
		UserID:          l.UserID,
		Amount:          l.Amount,
		InterestRate:    l.InterestRate,
		DurationMonths:  l.DurationMonths,
		Purpose:         l.Purpose,
		Status:          l.Status,
		AppliedDate:     l.AppliedDate,
		ApprovedDate:    l.ApprovedDate,
		DisbursedDate:   l.DisbursedDate,
		DueDate:         l.DueDate,
		RepaidDate:      l.RepaidDate,
		TotalAmount:     l.TotalAmount,
		AmountPaid:      l.AmountPaid,
		RemainingAmount: l.RemainingAmount,
		ApprovedBy:      l.ApprovedBy,
		RejectionReason: l.RejectionReason,
		CreatedAt:       l.CreatedAt,
	}
	if l.User != nil {
		resp.MemberName = l.User.FullName()
	}
	if l.Approver != nil {
		resp.ApproverName = l.Approver.FullName()
	}
	return resp
}

// Penalty represents the penalties table
type Penalty struct {
	ID           uint                 `gorm:"primaryKey" json:"id"`
	UserID       uint                 `gorm:"not null;index" json:"user_id"`
	Amount       float64              `gorm:"type:decimal(15,2);not null" json:"amount"`
	Reason       domain.PenaltyReason `gorm:"size:30;not null" json:"reason"`
	AssignedBy   uint                 `gorm:"not null" json:"assigned_by"`
	BranchID     *uint                `gorm:"index" json:"branch_id"`
	Status       domain.PenaltyStatus `gorm:"size:20;default:'pending';index" json:"status"`
	AssignedDate time.Time            `gorm:"not null" json:"assigned_date"`
	PaidDate     *time.Time           `json:"paid_date"`
	WaivedDate   *time.Time           `json:"waived_date"`
	WaivedBy     *uint                `json:"waived_by"`
	Notes        string               `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt    time.Time            `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time            `gorm:"autoUpdateTime" json:"updated_at"`

	User     *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Assigner *User `gorm:"foreignKey:AssignedBy" json:"assigner,omitempty"`
	Waiver   *User `gorm:"foreignKey:WaivedBy" json:"waiver,omitempty"`
}

func (Penalty) TableName() string {
	return "penalties"
}

// PenaltyResponse DTO
type PenaltyResponse struct {
	ID           uint                 `json:"id"`
	UserID       uint                 `json:"user_id"`
	MemberName   string               `json:"member_name,omitempty"`
	Amount       float64              `json:"amount"`
	Reason       domain.PenaltyReason `json:"reason"`
	AssignedBy   uint                 `json:"assigned_by"`
	BranchID     *uint                `json:"branch_id"`
	Status       domain.PenaltyStatus `json:"status"`
	AssignedDate time.Time            `json:"assigned_date"`
	PaidDate     *time.Time           `json:"paid_date"`
	WaivedDate   *time.Time           `json:"waived_date"`
	WaivedBy     *uint                `json:"waived_by"`
	Notes        string               `json:"notes,omitempty"`
}

func (p *Penalty) ToResponse() *PenaltyResponse {
	resp := &PenaltyResponse{
		ID:           p.ID,
		UserID:       p.UserID,
		Amount:       p.Amount,
		Reason:       p.Reason,
		AssignedBy:   p.AssignedBy,
		BranchID:     p.BranchID,
		Status:       p.Status,
		AssignedDate: p.AssignedDate,
		PaidDate:     p.PaidDate,
		WaivedDate:   p.WaivedDate,
		WaivedBy:     p.WaivedBy,
		Notes:        p.Notes,
	}
	if p.User != nil {
		resp.MemberName = p.User.FullName()
	}
	return resp
}

// ============================================================
// Audit trail & auth tokens
// ============================================================

// AuditLog represents the audit_logs table. Rows are append-only: they are
// written once and never updated or deleted.
type AuditLog struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ActorID    uint      `gorm:"not null;index" json:"actor_id"`
	Action     string    `gorm:"size:50;not null;index" json:"action"`
	Resource   string    `gorm:"size:50;not null;index" json:"resource"`
	ResourceID uint      `gorm:"not null" json:"resource_id"`
	Details    string    `gorm:"type:text" json:"details"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index" json:"created_at"`

	Actor *User `gorm:"foreignKey:ActorID" json:"actor,omitempty"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}

// RefreshToken represents the refresh_tokens table
type RefreshToken struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"index;not null" json:"user_id"`
	TokenHash string     `gorm:"size:255;not null;index" json:"-"`
	ExpiresAt time.Time  `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	RevokedAt *time.Time `gorm:"index" json:"revoked_at"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

func (RefreshToken) TableName() string {
	return "refresh_tokens"
}

func (rt *RefreshToken) IsRevoked() bool {
	return rt.RevokedAt != nil
}

func (rt *RefreshToken) IsExpired() bool {
	return time.Now().After(rt.ExpiresAt)
}

// PasswordResetToken represents the password_reset_tokens table. Single use:
// UsedAt is stamped when the token is consumed.
type PasswordResetToken struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"index;not null" json:"user_id"`
	TokenHash string     `gorm:"size:255;not null;index" json:"-"`
	ExpiresAt time.Time  `gorm:"not null" json:"expires_at"`
	UsedAt    *time.Time `json:"used_at"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

func (PasswordResetToken) TableName() string {
	return "password_reset_tokens"
}

// ============================================================
// Auto Migration
// ============================================================

// AutoMigrate runs auto migration for all tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Branch{},
		&User{},
		&RefreshToken{},
		&PasswordResetToken{},
		&Contribution{},
		&Loan{},
		&Penalty{},
		&AuditLog{},
	)
}
