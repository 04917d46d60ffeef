package domain_test

import (
	"testing"
	"time"

	"github.com/SscSPs/bahi_khata/internal/core/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ptr(t time.Time) *time.Time { return &t }

func payments(due time.Time, lateDays ...int) []domain.PaymentRecord {
	out := make([]domain.PaymentRecord, 0, len(lateDays))
	for _, l := range lateDays {
		out = append(out, domain.PaymentRecord{DueDate: ptr(due), PaidDate: due.AddDate(0, 0, l)})
	}
	return out
}

func TestClassifyRisk(t *testing.T) {
	asOf := day(2024, time.June, 1)
	due := day(2024, time.January, 10)
	policy := domain.DefaultRiskPolicy()

	tests := []struct {
		name      string
		history   []domain.PaymentRecord
		acc       domain.Account
		wantLevel domain.RiskLevel
		wantCat   domain.RiskCategory
		wantFlags []domain.AutomatedFlag
	}{
		{
			name:      "new account",
			acc:       domain.Account{ManualFlag: domain.FlagNone},
			wantLevel: domain.RiskLow,
			wantCat:   domain.RiskStandard,
		},
		{
			name:      "five on-time payments",
			history:   payments(due, 0, -1, 0, -3, 0),
			acc:       domain.Account{ManualFlag: domain.FlagNone},
			wantLevel: domain.RiskLow,
			wantCat:   domain.RiskStandard,
			wantFlags: []domain.AutomatedFlag{domain.FlagOnTimePayer},
		},
		{
			name:      "one late payment",
			history:   payments(due, 0, 2),
			acc:       domain.Account{ManualFlag: domain.FlagNone},
			wantLevel: domain.RiskMedium,
			wantCat:   domain.RiskStandard,
		},
		{
			name:      "frequent delays",
			history:   payments(due, 1, 2, 3),
			acc:       domain.Account{ManualFlag: domain.FlagNone},
			wantLevel: domain.RiskHigh,
			wantCat:   domain.RiskWatch,
			wantFlags: []domain.AutomatedFlag{domain.FlagFrequentDelays},
		},
		{
			name: "high debt",
			acc: domain.Account{
				ManualFlag:           domain.FlagNone,
				OutstandingPrincipal: decimal.NewFromInt(50000),
				OutstandingInterest:  decimal.RequireFromString("0.01"),
			},
			wantLevel: domain.RiskHigh,
			wantCat:   domain.RiskWatch,
			wantFlags: []domain.AutomatedFlag{domain.FlagHighDebtRisk},
		},
		{
			name: "high debt capped by good flag",
			acc: domain.Account{
				ManualFlag:           domain.FlagGood,
				OutstandingPrincipal: decimal.NewFromInt(60000),
			},
			wantLevel: domain.RiskMedium,
			wantCat:   domain.RiskStandard,
			wantFlags: []domain.AutomatedFlag{domain.FlagHighDebtRisk},
		},
		{
			name: "past promise but under npa threshold",
			acc: domain.Account{
				ManualFlag:           domain.FlagNone,
				OutstandingPrincipal: decimal.NewFromInt(100),
				PromisedReturnDate:   ptr(asOf.AddDate(0, 0, -30)),
			},
			wantLevel: domain.RiskMedium,
			wantCat:   domain.RiskStandard,
		},
		{
			name: "npa after ninety days",
			acc: domain.Account{
				ManualFlag:           domain.FlagNone,
				OutstandingPrincipal: decimal.NewFromInt(100),
				PromisedReturnDate:   ptr(asOf.AddDate(0, 0, -91)),
			},
			wantLevel: domain.RiskCritical,
			wantCat:   domain.RiskNPA,
			wantFlags: []domain.AutomatedFlag{domain.FlagNPA},
		},
		{
			name: "exactly ninety days is not npa",
			acc: domain.Account{
				ManualFlag:           domain.FlagNone,
				OutstandingPrincipal: decimal.NewFromInt(100),
				PromisedReturnDate:   ptr(asOf.AddDate(0, 0, -90)),
			},
			wantLevel: domain.RiskMedium,
			wantCat:   domain.RiskStandard,
		},
		{
			name: "settled account past promise is fine",
			acc: domain.Account{
				ManualFlag:         domain.FlagNone,
				PromisedReturnDate: ptr(asOf.AddDate(0, 0, -200)),
			},
			wantLevel: domain.RiskLow,
			wantCat:   domain.RiskStandard,
		},
		{
			name:      "do not credit",
			acc:       domain.Account{ManualFlag: domain.FlagDoNotCredit},
			wantLevel: domain.RiskCritical,
			wantCat:   domain.RiskWatch,
		},
		{
			name:      "npa override beats on-time history",
			history:   payments(due, 0, 0, 0, 0, 0),
			acc:       domain.Account{ManualFlag: domain.FlagNPAOverride},
			wantLevel: domain.RiskCritical,
			wantCat:   domain.RiskNPA,
			wantFlags: []domain.AutomatedFlag{domain.FlagOnTimePayer},
		},
		{
			name:      "written off",
			acc:       domain.Account{ManualFlag: domain.FlagDoNotCredit, WrittenOffAt: ptr(asOf)},
			wantLevel: domain.RiskCritical,
			wantCat:   domain.RiskNPA,
		},
		{
			name:      "late payments then five on time",
			history:   payments(due, 4, 0, 0, 0, 0, 0),
			acc:       domain.Account{ManualFlag: domain.FlagNone},
			wantLevel: domain.RiskLow,
			wantCat:   domain.RiskStandard,
			wantFlags: []domain.AutomatedFlag{domain.FlagOnTimePayer},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := domain.ClassifyRisk(tt.history, tt.acc, asOf, policy)
			assert.Equal(t, tt.wantLevel, got.Level)
			assert.Equal(t, tt.wantCat, got.Category)
			assert.ElementsMatch(t, tt.wantFlags, got.Flags)
		})
	}
}

func TestPaymentRecord_NoDueDateIsOnTime(t *testing.T) {
	p := domain.PaymentRecord{PaidDate: day(2024, time.March, 3)}
	assert.False(t, p.Late())
}

func TestAccount_AccrualEligible(t *testing.T) {
	d := day(2024, time.May, 2)
	base := domain.Account{Status: domain.StatusActive, OutstandingPrincipal: decimal.NewFromInt(10)}

	assert.True(t, base.AccrualEligible(d))

	accrued := base
	accrued.LastAccrualDate = ptr(d)
	assert.False(t, accrued.AccrualEligible(d))

	yesterday := base
	yesterday.LastAccrualDate = ptr(d.AddDate(0, 0, -1))
	assert.True(t, yesterday.AccrualEligible(d))

	frozen := base
	frozen.FreezeInterest = true
	assert.False(t, frozen.AccrualEligible(d))

	zero := base
	zero.OutstandingPrincipal = decimal.Zero
	assert.False(t, zero.AccrualEligible(d))

	closed := base
	closed.Status = domain.StatusClosed
	assert.False(t, closed.AccrualEligible(d))
}

func TestAccount_NextAccrualDate(t *testing.T) {
	upTo := day(2024, time.May, 20)
	base := domain.Account{Status: domain.StatusActive, OutstandingPrincipal: decimal.NewFromInt(10)}

	tests := []struct {
		name   string
		last   *time.Time
		frozen bool
		want   time.Time
		ok     bool
	}{
		{name: "never accrued starts at the date", want: upTo, ok: true},
		{name: "one day behind", last: ptr(upTo.AddDate(0, 0, -1)), want: upTo, ok: true},
		{name: "backlog starts after the last accrual", last: ptr(day(2024, time.May, 10)), want: day(2024, time.May, 11), ok: true},
		{name: "old backlog is cut to the window", last: ptr(day(2024, time.January, 1)), want: day(2024, time.May, 11), ok: true},
		{name: "up to date", last: ptr(upTo)},
		{name: "frozen", frozen: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acc := base
			acc.LastAccrualDate = tt.last
			acc.FreezeInterest = tt.frozen
			got, ok := acc.NextAccrualDate(upTo, 10)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAccount_ResumeAccrual(t *testing.T) {
	today := day(2024, time.May, 20)

	stale := domain.Account{LastAccrualDate: ptr(day(2024, time.April, 1))}
	stale.ResumeAccrual(today)
	assert.Equal(t, day(2024, time.May, 19), *stale.LastAccrualDate)

	fresh := domain.Account{}
	fresh.ResumeAccrual(today)
	assert.Equal(t, day(2024, time.May, 19), *fresh.LastAccrualDate)

	// An accrual already posted for today is kept.
	current := domain.Account{LastAccrualDate: ptr(today)}
	current.ResumeAccrual(today)
	assert.Equal(t, today, *current.LastAccrualDate)
}

func TestCalendarDate(t *testing.T) {
	ist, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	// 20:00 UTC on the 1st is already the 2nd in India.
	got := domain.CalendarDate(time.Date(2024, time.May, 1, 20, 0, 0, 0, time.UTC), ist)
	assert.Equal(t, day(2024, time.May, 2), got)
	assert.Equal(t, 31, domain.DaysBetween(day(2024, time.May, 1), day(2024, time.June, 1)))
}
