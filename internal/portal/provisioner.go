package portal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/workd-cli/internal/records"
)

// Status is the final state of one input record in a batch.
type Status string

const (
	StatusProvisioned  Status = "provisioned"
	StatusRejected       Status = "rejected"
	StatusQuotaExhausted Status = "quota_exhausted"
	StatusFailed         Status = "failed"
	StatusNotAttempted   Status = "not_attempted"
)

// Outcome is what happened to one input record. Kind names the error kind
// of a record that did not succeed.
type Outcome struct {
	Index    int    `json:"index"`
	Username string `json:"username"`
	Status   Status `json:"status"`
	Kind     string `json:"kind,omitempty"`
	Reason   string `json:"reason,omitempty"`

	Result *records.ProvisionResult `json:"-"`
	Err    error                    `json:"-"`
}

// Summary describes a whole batch run.
type Summary struct {
	RunID          string    `json:"run_id"`
	Started        time.Time `json:"started"`
	Finished       time.Time `json:"finished"`
	Provisioned    int       `json:"provisioned"`
	Rejected       int       `json:"rejected"`
	QuotaExhausted int       `json:"quota_exhausted"`
	Failed         int       `json:"failed"`
	NotAttempted   int       `json:"not_attempted"`
	Outcomes       []Outcome `json:"outcomes"`
}

func (s *Summary) tally() {
	s.Provisioned, s.Rejected, s.QuotaExhausted, s.Failed, s.NotAttempted = 0, 0, 0, 0, 0
	for _, o := range s.Outcomes {
		switch o.Status {
		case StatusProvisioned:
			s.Provisioned++
		case StatusRejected:
			s.Rejected++
		case StatusQuotaExhausted:
			s.QuotaExhausted++
		case StatusFailed:
			s.Failed++
		default:
			s.NotAttempted++
		}
	}
}

// ResultSink receives each provisioned record as soon as it is complete.
type ResultSink interface {
	Write(records.ProvisionResult) error
}

// Provisioner creates portal accounts one record at a time.
type Provisioner struct {
	driver       *Driver
	logger       *zap.Logger
	quotaMarkers []string
}

// NewProvisioner returns a Provisioner driving d. A rejection whose message
// contains one of quotaMarkers (case-insensitively) is treated as the
// portal's creation quota being exhausted.
func NewProvisioner(d *Driver, quotaMarkers []string, logger *zap.Logger) *Provisioner {
	markers := make([]string, 0, len(quotaMarkers))
	for _, m := range quotaMarkers {
		if m = strings.ToLower(strings.TrimSpace(m)); m != "" {
			markers = append(markers, m)
		}
	}
	return &Provisioner{driver: d, logger: logger.Named("provisioner"), quotaMarkers: markers}
}

// Run provisions inputs in order and writes every success to sink before
// moving on. A rejected or failed record does not stop the batch. The batch
// stops early, leaving the remaining records not attempted, when ctx is
// cancelled, the quota is exhausted, the sink fails, or the session cannot
// be brought back to the listing screen after a failure. The returned
// Summary is always complete, even alongside an error.
func (p *Provisioner) Run(ctx context.Context, inputs []records.ProvisionInput, sink ResultSink) (*Summary, error) {
	sum := &Summary{
		RunID:    uuid.NewString(),
		Started:  time.Now(),
		Outcomes: make([]Outcome, len(inputs)),
	}
	for i, in := range inputs {
		sum.Outcomes[i] = Outcome{Index: i, Username: records.NormalizeUsername(in.Username), Status: StatusNotAttempted}
	}
	log := p.logger.With(zap.String("run_id", sum.RunID))
	log.Info("Starting batch", zap.Int("records", len(inputs)))

	err := p.run(ctx, log, inputs, sink, sum.Outcomes)

	sum.Finished = time.Now()
	sum.tally()
	log.Info("Batch finished",
		zap.Int("provisioned", sum.Provisioned),
		zap.Int("rejected", sum.Rejected),
		zap.Int("quota_exhausted", sum.QuotaExhausted),
		zap.Int("failed", sum.Failed),
		zap.Int("not_attempted", sum.NotAttempted),
	)
	return sum, err
}

func (p *Provisioner) run(ctx context.Context, log *zap.Logger, inputs []records.ProvisionInput, sink ResultSink, outcomes []Outcome) error {
	for i, in := range inputs {
		if err := ctx.Err(); err != nil {
			return err
		}
		out := &outcomes[i]
		rlog := log.With(zap.Int("record", i+1), zap.String("username", out.Username))

		res, err := p.Provision(ctx, in)
		if err == nil {
			out.Status = StatusProvisioned
			out.Result = &res
			if werr := sink.Write(res); werr != nil {
				return fmt.Errorf("failed to record result for %s: %w", out.Username, werr)
			}
			rlog.Info("Added user")
			continue
		}

		out.Err = err
		out.Kind = KindOf(err).String()
		out.Reason = err.Error()
		switch {
		case KindOf(err) == KindRejected:
			out.Status = StatusRejected
			rlog.Error("Failed to create user", zap.String("reason", out.Reason))
		case KindOf(err) == KindQuota:
			out.Status = StatusQuotaExhausted
			rlog.Error("Insufficient quota, stopping batch", zap.String("reason", out.Reason))
			return err
		case ctx.Err() != nil:
			out.Status = StatusFailed
			return err
		default:
			out.Status = StatusFailed
			rlog.Error("Record failed", zap.Error(err))
			if rerr := p.recoverListing(ctx); rerr != nil {
				return fmt.Errorf("failed to recover session after %s: %w", out.Username, rerr)
			}
		}
	}
	return nil
}

// recoverListing dismisses a dialog left open by a failed record and goes
// back to the listing screen.
func (p *Provisioner) recoverListing(ctx context.Context) error {
	open, err := p.driver.exists(ctx, locDialogOK)
	if err != nil {
		return err
	}
	if open {
		if err := p.driver.click(ctx, locDialogOK); err != nil {
			return err
		}
	}
	return p.driver.ReturnToListing(ctx)
}

// form carries one record through the creation workflow.
type form struct {
	username string
	in       records.ProvisionInput
	password string
}

type step struct {
	name string
	run  func(ctx context.Context, f *form) error
}

// creationSteps run in order for every record. awaitConfirmation ends the
// sequence with an error when the portal rejects the record.
func (p *Provisioner) creationSteps() []step {
	return []step{
		{"open creation form", p.openCreationForm},
		{"fill identity", p.fillIdentity},
		{"fill contact", p.fillContact},
		{"assign default role", p.assignDefaultRole},
		{"submit", p.submit},
		{"await confirmation", p.awaitConfirmation},
		{"return to listing", p.returnAfterCreate},
		{"search by username", p.searchByUsername},
		{"open detail", p.openDetail},
		{"open password reset", p.openPasswordReset},
		{"confirm reset", p.confirmReset},
		{"extract issued password", p.extractIssuedPassword},
		{"return to listing", p.returnToListing},
	}
}

// Provision runs the creation workflow for one record and returns the
// record with its issued password.
func (p *Provisioner) Provision(ctx context.Context, in records.ProvisionInput) (records.ProvisionResult, error) {
	f := &form{username: records.NormalizeUsername(in.Username), in: in}
	f.in.Username = f.username
	if f.username == "" {
		return records.ProvisionResult{}, Rejected("empty username")
	}

	for _, s := range p.creationSteps() {
		if err := s.run(ctx, f); err != nil {
			if k := KindOf(err); k == KindRejected || k == KindQuota {
				return records.ProvisionResult{}, err
			}
			return records.ProvisionResult{}, fmt.Errorf("%s: %s: %w", f.username, s.name, err)
		}
	}
	return records.ProvisionResult{ProvisionInput: f.in, Password: f.password}, nil
}

func (p *Provisioner) openCreationForm(ctx context.Context, _ *form) error {
	return p.driver.NavigateTo(ctx, ScreenCreation)
}

func (p *Provisioner) fillIdentity(ctx context.Context, f *form) error {
	return p.typeAll(ctx, []fieldValue{
		{locEmailField, f.username},
		{locDisplayNameField, f.in.DisplayName()},
		{locFirstNameTHField, f.in.FirstNameTH},
		{locLastNameTHField, f.in.LastNameTH},
		{locFirstNameENField, f.in.FirstNameEN},
		{locLastNameENField, f.in.LastNameEN},
		{locNationalIDField, f.in.NationalID},
		{locSecondaryEmail, f.in.SecondaryEmail},
	})
}

func (p *Provisioner) fillContact(ctx context.Context, f *form) error {
	if err := p.driver.click(ctx, locContactTab); err != nil {
		return err
	}
	if err := p.driver.waitFor(ctx, locTelephoneField); err != nil {
		return err
	}
	return p.typeAll(ctx, []fieldValue{
		{locTelephoneField, f.in.Tel},
		{locMobileField, f.in.Mobile},
	})
}

func (p *Provisioner) assignDefaultRole(ctx context.Context, _ *form) error {
	if err := p.driver.click(ctx, locRoleTab); err != nil {
		return err
	}
	if err := p.driver.waitFor(ctx, locRoleHeading); err != nil {
		return err
	}
	if err := p.driver.click(ctx, locRoleDropdown); err != nil {
		return err
	}
	if err := p.driver.waitFor(ctx, locDefaultRole); err != nil {
		return err
	}
	return p.driver.click(ctx, locDefaultRole)
}

func (p *Provisioner) submit(ctx context.Context, _ *form) error {
	return p.driver.click(ctx, locCreateButton)
}

// awaitConfirmation reads the dialog shown after submit. Any title other
// than the success title is a rejection: the dialog message becomes the
// reason, the dialog is dismissed and the session returns to the listing.
func (p *Provisioner) awaitConfirmation(ctx context.Context, f *form) error {
	title, err := p.driver.readText(ctx, locDialogTitle)
	if err != nil {
		return err
	}
	if strings.TrimSpace(title) == dialogSuccessTitle {
		return nil
	}

	msg, err := p.driver.readText(ctx, locDialogMessage)
	if err != nil {
		return err
	}
	reason := f.username + " -> " + collapseNewlines(msg)

	if err := p.driver.click(ctx, locDialogOK); err != nil {
		return err
	}
	if err := p.driver.ReturnToListing(ctx); err != nil {
		return err
	}
	if p.isQuota(msg) {
		return QuotaExhausted(reason)
	}
	return Rejected(reason)
}

// returnAfterCreate dismisses the success dialog. The portal then shows the
// listing on its own; its rows are cleared so the search below can only
// match freshly loaded results.
func (p *Provisioner) returnAfterCreate(ctx context.Context, _ *form) error {
	if err := p.driver.click(ctx, locDialogOK); err != nil {
		return err
	}
	if err := p.driver.waitFor(ctx, locTableRow); err != nil {
		return err
	}
	p.driver.current = ScreenListing
	return p.driver.removeAll(ctx, locTableRow)
}

func (p *Provisioner) searchByUsername(ctx context.Context, f *form) error {
	// The trailing '@' keeps "john" from also matching "johnny@...".
	return p.driver.typeInto(ctx, locSearchField, f.username+"@")
}

func (p *Provisioner) openDetail(ctx context.Context, _ *form) error {
	if err := p.driver.click(ctx, locFirstRowButton); err != nil {
		return err
	}
	p.driver.current = ScreenUnknown
	return nil
}

func (p *Provisioner) openPasswordReset(ctx context.Context, _ *form) error {
	return p.driver.click(ctx, locChangePassword)
}

func (p *Provisioner) confirmReset(ctx context.Context, _ *form) error {
	return p.driver.click(ctx, locConfirmReset)
}

func (p *Provisioner) extractIssuedPassword(ctx context.Context, f *form) error {
	text, err := p.driver.readText(ctx, locIssuedPassword)
	if err != nil {
		return err
	}
	password, err := parseIssuedPassword(text)
	if err != nil {
		return err
	}
	f.password = password
	return nil
}

func (p *Provisioner) returnToListing(ctx context.Context, _ *form) error {
	return p.driver.ReturnToListing(ctx)
}

type fieldValue struct {
	loc   Locator
	value string
}

func (p *Provisioner) typeAll(ctx context.Context, fields []fieldValue) error {
	for _, fv := range fields {
		if err := p.driver.typeInto(ctx, fv.loc, fv.value); err != nil {
			return err
		}
	}
	return nil
}

func (p *Provisioner) isQuota(msg string) bool {
	msg = strings.ToLower(msg)
	for _, m := range p.quotaMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

var errPasswordLabel = errors.New("issued password label not found")

// parseIssuedPassword extracts the value from "<label>: <value>". A missing
// label or an empty value is an error, never an empty password.
func parseIssuedPassword(text string) (string, error) {
	i := strings.Index(text, issuedPasswordLabel)
	if i < 0 {
		return "", UnexpectedUI(fmt.Sprintf("password text %q", truncate(text, 40)), errPasswordLabel)
	}
	password := strings.TrimSpace(text[i+len(issuedPasswordLabel):])
	if password == "" {
		return "", UnexpectedUI("issued password is empty", nil)
	}
	return password, nil
}

func collapseNewlines(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
