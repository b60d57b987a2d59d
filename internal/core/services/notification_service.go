package services

import (
	"fmt"

	"github.com/angep72/Community-saver/internal/adapters/persistence/models"
	"github.com/angep72/Community-saver/internal/core/domain"
	"github.com/angep72/Community-saver/internal/pkg/mailer"
)

// NotificationService sends member-facing email notices. Delivery is
// best-effort: callers log a failure or surface it as a response warning,
// never as an operation failure.
type NotificationService struct {
	mailer *mailer.Mailer
}

// NewNotificationService creates a new notification service
func NewNotificationService(m *mailer.Mailer) *NotificationService {
	return &NotificationService{mailer: m}
}

// IsEnabled checks if mail delivery is configured
func (s *NotificationService) IsEnabled() bool {
	return s.mailer.Enabled()
}

// LoanDecision mails the borrower about an approval or rejection
func (s *NotificationService) LoanDecision(user *models.User, loan *models.Loan) error {
	var subject, body string

	switch loan.Status {
	case domain.LoanApproved:
		subject = "Your loan request has been approved"
		body = fmt.Sprintf(`
			<p>Hello %s,</p>
			<p>Your loan request of <b>%.2f</b> has been approved at an interest
			rate of %.2f%% over %d months.</p>
			<p>Total to repay: <b>%.2f</b>. You will be notified when the funds
			are disbursed.</p>`,
			user.FirstName, loan.Amount, loan.InterestRate, loan.DurationMonths, loan.TotalAmount)
	case domain.LoanRejected:
		subject = "Your loan request has been declined"
		body = fmt.Sprintf(`
			<p>Hello %s,</p>
			<p>Your loan request of <b>%.2f</b> was declined.</p>
			<p>Reason: %s</p>
			<p>You can talk to your branch lead and submit a new request.</p>`,
			user.FirstName, loan.Amount, loan.RejectionReason)
	default:
		return nil
	}

	return s.mailer.Send(user.Email, subject, body)
}

// LoanOverdue reminds a borrower that their loan is past due
func (s *NotificationService) LoanOverdue(user *models.User, loan *models.Loan) error {
	due := ""
	if loan.DueDate != nil {
		due = loan.DueDate.Format("2 January 2006")
	}
	body := fmt.Sprintf(`
		<p>Hello %s,</p>
		<p>Your loan of <b>%.2f</b> was due on %s and <b>%.2f</b> is still
		outstanding.</p>
		<p>Please contact your branch lead to arrange repayment.</p>`,
		user.FirstName, loan.Amount, due, loan.RemainingAmount)

	return s.mailer.Send(user.Email, "Loan repayment overdue", body)
}

// MemberApproved welcomes a newly approved member
func (s *NotificationService) MemberApproved(user *models.User) error {
	body := fmt.Sprintf(`
		<p>Hello %s,</p>
		<p>Your membership has been approved. You can now sign in, record
		contributions and request loans.</p>`,
		user.FirstName)

	return s.mailer.Send(user.Email, "Welcome to the group", body)
}

// PasswordReset mails a reset link
func (s *NotificationService) PasswordReset(user *models.User, resetLink string) error {
	body := fmt.Sprintf(`
		<p>Hello %s,</p>
		<p>A password reset was requested for your account. The link below is
		valid for a short time and can be used once:</p>
		<p><a href="%s">Reset your password</a></p>
		<p>If you did not request this, ignore this email.</p>`,
		user.FirstName, resetLink)

	return s.mailer.Send(user.Email, "Password reset", body)
}
