package main

import (
	"context"
	"errors"
	"fmt"

	"healthportal/backend/internal/account"
	"healthportal/backend/internal/audit"
	"healthportal/backend/internal/board"
	"healthportal/backend/internal/complaint"
	"healthportal/backend/internal/config"
	"healthportal/backend/internal/models"
	"healthportal/backend/internal/notice"
	"healthportal/backend/internal/notify"
	"healthportal/backend/internal/uploads"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const demoPassword = "demo12345"

var demoCitizens = []account.Registration{
	{Username: "citizen1", Email: "citizen1@example.com", FullName: "Kim Minji", Phone: "010-1111-2222", AgreeOptional: true},
	{Username: "citizen2", Email: "citizen2@example.com", FullName: "Lee Junho", Phone: "010-3333-4444"},
}

var demoNotices = []notice.Input{
	{Title: "Flu vaccination schedule", Content: "Free flu shots for residents over 65 start on the first Monday of October.", Published: true},
	{Title: "Clinic hours during the holidays", Content: "The public health centre is closed on national holidays.", Published: true},
	{Title: "Draft: heatwave guidance", Content: "Not published yet."},
}

var demoPosts = []board.PostInput{
	{Title: "Where can I get a health checkup?", Content: "<p>Is the annual checkup available on Saturdays?</p>", Category: "question"},
	{Title: "Thanks to the vaccination team", Content: "<p>Very quick and friendly service.</p>", Category: "review"},
}

var demoComplaints = []complaint.Input{
	{Title: "Long waiting time", Content: "I waited over two hours for a consultation.", Category: "medical"},
	{Title: "Billing error", Content: "I was charged twice for the same test.", Category: "billing"},
}

func seedDemoCmd(a *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "seed-demo",
		Short: "Insert demo citizens, notices, posts and complaints",
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := seedDemo(cmd.Context(), a)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d rows\n", n)
			return nil
		},
	}
}

// seedDemo goes through the domain services so demo rows are validated and
// audited like real ones. Existing demo users are reused.
func seedDemo(ctx context.Context, a *cli) (int, error) {
	rec := audit.NewLogger(a.store, a.log)
	boards := board.NewService(a.store, rec, uploads.NewPostStore(a.cfg), a.log)
	notices := notice.NewService(a.store, rec)
	complaints := complaint.NewService(a.store, rec, notify.Nop{}, a.log)

	password := a.cfg.AdminPassword
	if password == "" {
		password = demoPassword
	}
	if _, err := a.accounts.EnsureAdmin(ctx, a.cfg.AdminUsername, a.cfg.AdminEmail, password); err != nil {
		return 0, err
	}
	admin, err := a.store.GetUserByUsername(a.cfg.AdminUsername)
	if err != nil {
		return 0, err
	}
	if !admin.IsAdmin() {
		return 0, fmt.Errorf("user %q exists but is not an admin", admin.Username)
	}

	count := 0
	var citizens []*models.User
	for _, reg := range demoCitizens {
		reg.Password = demoPassword
		reg.AgreeRequired = true
		user, err := a.accounts.Register(ctx, reg)
		if errors.Is(err, account.ErrDuplicateAccount) {
			user, err = a.store.GetUserByUsername(reg.Username)
		} else if err == nil {
			count++
		}
		if err != nil {
			return count, fmt.Errorf("citizen %s: %w", reg.Username, err)
		}
		citizens = append(citizens, user)
	}

	for _, in := range demoNotices {
		if _, err := notices.Create(ctx, admin, in); err != nil {
			return count, fmt.Errorf("notice %q: %w", in.Title, err)
		}
		count++
	}
	for i, in := range demoPosts {
		if _, err := boards.Create(ctx, citizens[i%len(citizens)], in); err != nil {
			return count, fmt.Errorf("post %q: %w", in.Title, err)
		}
		count++
	}
	for i, in := range demoComplaints {
		c, err := complaints.Submit(ctx, citizens[i%len(citizens)], in)
		if err != nil {
			return count, fmt.Errorf("complaint %q: %w", in.Title, err)
		}
		count++
		if i == 0 {
			if _, err := complaints.Transition(ctx, admin, c.ID, config.StatusInReview); err != nil {
				return count, err
			}
		}
	}

	a.log.Info("demo data seeded", zap.Int("rows", count))
	return count, nil
}
