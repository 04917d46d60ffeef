package mapping

import (
	"github.com/SscSPs/bahi_khata/internal/core/domain"
	"github.com/SscSPs/bahi_khata/internal/models"
)

// ToModelAccount converts a domain Account to a model Account
func ToModelAccount(d domain.Account) models.Account {
	return models.Account{
		AccountID:            d.AccountID,
		ShopID:               d.ShopID,
		CustomerID:           d.CustomerID,
		CustomerName:         d.CustomerName,
		Phone:                d.Phone,
		Village:              d.Village,
		CreditLimit:          d.CreditLimit,
		OutstandingPrincipal: d.OutstandingPrincipal,
		OutstandingInterest:  d.OutstandingInterest,
		OutstandingPenalty:   d.OutstandingPenalty,
		AdvanceBalance:       d.AdvanceBalance,
		TotalPaid:            d.TotalPaid,
		PromisedReturnDate:   d.PromisedReturnDate,
		FreezeInterest:       d.FreezeInterest,
		RiskCategory:         string(d.RiskCategory),
		RiskLevel:            string(d.RiskLevel),
		ManualFlag:           string(d.ManualFlag),
		LastAccrualDate:      d.LastAccrualDate,
		WrittenOffAt:         d.WrittenOffAt,
		Status:               string(d.Status),
		AuditFields:          ToModelAuditFields(d.AuditFields),
	}
}

// ToDomainAccount converts a model Account to a domain Account
func ToDomainAccount(m models.Account) domain.Account {
	return domain.Account{
		AccountID:            m.AccountID,
		ShopID:               m.ShopID,
		CustomerID:           m.CustomerID,
		CustomerName:         m.CustomerName,
		Phone:                m.Phone,
		Village:              m.Village,
		CreditLimit:          m.CreditLimit,
		OutstandingPrincipal: m.OutstandingPrincipal,
		OutstandingInterest:  m.OutstandingInterest,
		OutstandingPenalty:   m.OutstandingPenalty,
		AdvanceBalance:       m.AdvanceBalance,
		TotalPaid:            m.TotalPaid,
		PromisedReturnDate:   utcDate(m.PromisedReturnDate),
		FreezeInterest:       m.FreezeInterest,
		RiskCategory:         domain.RiskCategory(m.RiskCategory),
		RiskLevel:            domain.RiskLevel(m.RiskLevel),
		ManualFlag:           domain.ManualFlag(m.ManualFlag),
		LastAccrualDate:      utcDate(m.LastAccrualDate),
		WrittenOffAt:         m.WrittenOffAt,
		Status:               domain.AccountStatus(m.Status),
		AuditFields:          ToDomainAuditFields(m.AuditFields),
	}
}

// ToDomainAccounts converts a slice of model Accounts
func ToDomainAccounts(ms []models.Account) []domain.Account {
	out := make([]domain.Account, len(ms))
	for i, m := range ms {
		out[i] = ToDomainAccount(m)
	}
	return out
}
