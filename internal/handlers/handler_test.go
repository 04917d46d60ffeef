package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/SscSPs/bahi_khata/internal/apperrors"
	"github.com/SscSPs/bahi_khata/internal/core/domain"
	portssvc "github.com/SscSPs/bahi_khata/internal/core/ports/services"
	"github.com/SscSPs/bahi_khata/internal/dto"
	"github.com/SscSPs/bahi_khata/internal/handlers"
	"github.com/SscSPs/bahi_khata/internal/middleware"
	"github.com/SscSPs/bahi_khata/internal/platform/config"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

const (
	testShop     = "shop-1"
	testOperator = "op-7"
	testAccount  = "acc-1"
)

type HandlerTestSuite struct {
	suite.Suite
	router    *gin.Engine
	cfg       *config.Config
	ledger    *MockLedgerService
	accrual   *MockAccrualService
	reporting *MockReportingService
	token     string
}

func (s *HandlerTestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
	s.Require().NoError(handlers.RegisterValidators())
}

func (s *HandlerTestSuite) SetupTest() {
	s.cfg = &config.Config{
		JWTSecret:    "test-secret-key-that-is-long-enough",
		JWTIssuer:    "bahi-khata",
		IsProduction: true,
		Location:     time.UTC,
		UPIVPA:       "ramu.store@okbank",
		UPIPayeeName: "Ramu Kirana",
	}
	s.ledger = new(MockLedgerService)
	s.accrual = new(MockAccrualService)
	s.reporting = new(MockReportingService)
	s.token = s.signToken(testShop, testOperator)
	s.router = s.newRouter()
}

func (s *HandlerTestSuite) newRouter() *gin.Engine {
	r := gin.New()
	handlers.RegisterRoutes(r, s.cfg, &portssvc.ServiceContainer{
		Ledger:    s.ledger,
		Accrual:   s.accrual,
		Reporting: s.reporting,
	})
	return r
}

func (s *HandlerTestSuite) signToken(shopID, operator string) string {
	return s.signRoleToken(shopID, operator, "")
}

func (s *HandlerTestSuite) signRoleToken(shopID, operator, role string) string {
	claims := middleware.ShopClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   shopID,
			Issuer:    s.cfg.JWTIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Operator: operator,
		Role:     role,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
	s.Require().NoError(err)
	return signed
}

func (s *HandlerTestSuite) do(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *HandlerTestSuite) decode(w *httptest.ResponseRecorder, v any) {
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func sampleReceipt(txnType domain.TransactionType, amount string) *domain.Receipt {
	return &domain.Receipt{
		Transaction: domain.Transaction{
			TransactionID: "txn-1",
			AccountID:     testAccount,
			Type:          txnType,
			Amount:        d(amount),
			CreatedAt:     time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC),
			CreatedBy:     testOperator,
		},
		Balances:  domain.Balances{Principal: d("4000"), Interest: d("25.50")},
		RiskLevel: domain.RiskLow,
	}
}

func (s *HandlerTestSuite) TestHealthIsPublic() {
	s.token = ""
	w := s.do(http.MethodGet, "/health", nil)
	s.Equal(http.StatusOK, w.Code)
}

func (s *HandlerTestSuite) TestRejectsMissingAndForeignTokens() {
	s.token = ""
	w := s.do(http.MethodGet, "/api/v1/accounts", nil)
	s.Equal(http.StatusUnauthorized, w.Code)

	s.cfg.JWTSecret = "another-secret-key-that-is-long-enough"
	s.token = s.signToken(testShop, "")
	s.cfg.JWTSecret = "test-secret-key-that-is-long-enough"
	w = s.do(http.MethodGet, "/api/v1/accounts", nil)
	s.Equal(http.StatusUnauthorized, w.Code)
	s.ledger.AssertNotCalled(s.T(), "ListAccounts", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (s *HandlerTestSuite) TestOpenAccount() {
	req := dto.OpenAccountRequest{CustomerID: "c-1", CustomerName: "Ramesh", Village: "Rampur", CreditLimit: d("5000")}
	s.ledger.On("OpenAccount", mock.Anything, testShop, mock.MatchedBy(func(r dto.OpenAccountRequest) bool {
		return r.CustomerID == "c-1" && r.CreditLimit.Equal(d("5000"))
	}), testOperator).Return(&domain.Account{AccountID: testAccount, ShopID: testShop, CustomerID: "c-1", Status: domain.StatusActive}, nil).Once()

	w := s.do(http.MethodPost, "/api/v1/accounts", req)

	s.Equal(http.StatusCreated, w.Code, w.Body.String())
	var resp dto.AccountResponse
	s.decode(w, &resp)
	s.Equal(testAccount, resp.AccountID)
	s.ledger.AssertExpectations(s.T())
}

func (s *HandlerTestSuite) TestOpenAccountValidation() {
	w := s.do(http.MethodPost, "/api/v1/accounts", gin.H{"customerName": "No id"})
	s.Equal(http.StatusBadRequest, w.Code)
	s.ledger.AssertNotCalled(s.T(), "OpenAccount", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (s *HandlerTestSuite) TestOperatorFallsBackToShop() {
	s.token = s.signToken(testShop, "")
	s.ledger.On("RecordNpaWriteOff", mock.Anything, testShop, testAccount, testShop).
		Return(sampleReceipt(domain.TxnNPAWriteOff, "5000"), nil).Once()

	w := s.do(http.MethodPost, "/api/v1/accounts/"+testAccount+"/write-off", nil)
	s.Equal(http.StatusCreated, w.Code, w.Body.String())
	s.ledger.AssertExpectations(s.T())
}

func (s *HandlerTestSuite) TestRecordPayment() {
	s.ledger.On("RecordPayment", mock.Anything, testShop, testAccount, mock.MatchedBy(func(r dto.RecordPaymentRequest) bool {
		return r.Amount.Equal(d("1000")) && r.PaymentMethod == domain.PaymentUPI
	}), testOperator).Return(sampleReceipt(domain.TxnPayment, "1000"), nil).Once()

	w := s.do(http.MethodPost, "/api/v1/accounts/"+testAccount+"/payments", gin.H{"amount": "1000", "paymentMethod": "UPI"})

	s.Equal(http.StatusCreated, w.Code, w.Body.String())
	var resp dto.ReceiptResponse
	s.decode(w, &resp)
	s.Equal("txn-1", resp.Transaction.TransactionID)
	s.True(d("4025.50").Equal(resp.TotalDue))
	s.ledger.AssertExpectations(s.T())
}

func (s *HandlerTestSuite) TestRecordPaymentRejectsUnknownMethod() {
	w := s.do(http.MethodPost, "/api/v1/accounts/"+testAccount+"/payments", gin.H{"amount": "10", "paymentMethod": "BARTER"})
	s.Equal(http.StatusBadRequest, w.Code)
	s.ledger.AssertNotCalled(s.T(), "RecordPayment", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (s *HandlerTestSuite) TestSetManualFlagRejectsUnknownFlag() {
	w := s.do(http.MethodPut, "/api/v1/accounts/"+testAccount+"/manual-flag", gin.H{"flag": "VIP"})
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *HandlerTestSuite) TestLedgerErrorMapping() {
	outstanding := apperrors.Outstanding{Principal: d("400"), Interest: d("2.50")}
	tests := []struct {
		name      string
		err       error
		status    int
		code      string
		retryable bool
	}{
		{"overpayment", apperrors.ErrOverpaymentNotAllowed, http.StatusUnprocessableEntity, "OVERPAYMENT_NOT_ALLOWED", false},
		{"invalid amount", apperrors.ErrInvalidAmount, http.StatusBadRequest, "INVALID_AMOUNT", false},
		{"not found", apperrors.ErrAccountNotFound, http.StatusNotFound, "ACCOUNT_NOT_FOUND", false},
		{"lock timeout", apperrors.ErrConcurrencyTimeout, http.StatusConflict, "CONCURRENCY_TIMEOUT", true},
		{"stale version", apperrors.ErrConflict, http.StatusConflict, "CONFLICT", true},
		{"corrupted", apperrors.ErrLedgerCorrupted, http.StatusLocked, "LEDGER_CORRUPTED", false},
		{"closed", apperrors.ErrAccountClosed, http.StatusUnprocessableEntity, "ACCOUNT_CLOSED", false},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.ledger = new(MockLedgerService)
			s.router = s.newRouter()
			ledgerErr := &apperrors.LedgerError{Op: "RecordPayment", AccountID: testAccount, Amount: d("500"), Outstanding: outstanding, Err: tt.err}
			s.ledger.On("RecordPayment", mock.Anything, testShop, testAccount, mock.Anything, testOperator).Return(nil, ledgerErr).Once()

			w := s.do(http.MethodPost, "/api/v1/accounts/"+testAccount+"/payments", gin.H{"amount": "500", "paymentMethod": "CASH"})

			s.Equal(tt.status, w.Code)
			var body handlers.ErrorResponse
			s.decode(w, &body)
			s.Equal(tt.code, body.Code)
			s.Equal(tt.retryable, body.Retryable)
			s.Require().NotNil(body.Outstanding)
			s.True(d("400").Equal(body.Outstanding.Principal))
			if tt.retryable {
				s.Equal("1", w.Header().Get("Retry-After"))
			}
		})
	}
}

func (s *HandlerTestSuite) TestInternalErrorsHideCause() {
	s.ledger.On("GetAccountSnapshot", mock.Anything, testShop, testAccount).Return(nil, fmt.Errorf("pq: connection refused")).Once()

	w := s.do(http.MethodGet, "/api/v1/accounts/"+testAccount, nil)

	s.Equal(http.StatusInternalServerError, w.Code)
	s.NotContains(w.Body.String(), "connection refused")
}

func (s *HandlerTestSuite) TestStatementPassesPaging() {
	next := "tok-2"
	s.ledger.On("GetStatement", mock.Anything, testShop, testAccount, 10, mock.MatchedBy(func(t *string) bool {
		return t != nil && *t == "tok-1"
	})).Return(&domain.Statement{AccountID: testAccount, Transactions: []domain.Transaction{}, NextToken: &next}, nil).Once()

	w := s.do(http.MethodGet, "/api/v1/accounts/"+testAccount+"/statement?limit=10&nextToken=tok-1", nil)

	s.Equal(http.StatusOK, w.Code, w.Body.String())
	var resp dto.StatementResponse
	s.decode(w, &resp)
	s.Require().NotNil(resp.NextToken)
	s.Equal(next, *resp.NextToken)
	s.False(resp.Verified)
}

func (s *HandlerTestSuite) TestFullStatementIsVerified() {
	s.ledger.On("GetStatement", mock.Anything, testShop, testAccount, 0, (*string)(nil)).
		Return(&domain.Statement{AccountID: testAccount, Verified: true}, nil).Once()

	w := s.do(http.MethodGet, "/api/v1/accounts/"+testAccount+"/statement", nil)

	s.Equal(http.StatusOK, w.Code)
	var resp dto.StatementResponse
	s.decode(w, &resp)
	s.True(resp.Verified)
	s.NotNil(resp.Transactions)
}

func (s *HandlerTestSuite) TestPaymentQR() {
	s.ledger.On("GetAccountSnapshot", mock.Anything, testShop, testAccount).
		Return(&domain.AccountSnapshot{Account: domain.Account{AccountID: testAccount, CustomerName: "Ramesh"}, TotalDue: d("4025.50")}, nil).Once()

	w := s.do(http.MethodGet, "/api/v1/accounts/"+testAccount+"/payment-qr", nil)

	s.Equal(http.StatusOK, w.Code)
	s.Equal("image/png", w.Header().Get("Content-Type"))
	s.True(bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")))
}

func (s *HandlerTestSuite) TestPaymentQRWithoutPayee() {
	s.cfg.UPIVPA = ""
	s.router = s.newRouter()
	s.ledger.On("GetAccountSnapshot", mock.Anything, testShop, testAccount).
		Return(&domain.AccountSnapshot{Account: domain.Account{AccountID: testAccount}, TotalDue: d("10")}, nil).Once()

	w := s.do(http.MethodGet, "/api/v1/accounts/"+testAccount+"/payment-qr", nil)
	s.Equal(http.StatusServiceUnavailable, w.Code)
}

func (s *HandlerTestSuite) TestRunAccrual() {
	ist := time.FixedZone("IST", 5*3600+1800)
	s.cfg.Location = ist
	s.router = s.newRouter()
	s.token = s.signRoleToken(testShop, testOperator, middleware.RoleAdmin)

	asOf := time.Date(2026, 1, 10, 0, 0, 0, 0, ist)
	s.accrual.On("RunDailyAccrual", mock.Anything, asOf).
		Return(&domain.AccrualRun{RunID: "run-1", AccrualDate: asOf, Eligible: 2, Accrued: 2, TotalInterest: d("13.34")}, nil).Once()

	w := s.do(http.MethodPost, "/api/v1/accrual/runs", gin.H{"asOf": "2026-01-10"})

	s.Equal(http.StatusOK, w.Code, w.Body.String())
	s.accrual.AssertExpectations(s.T())

	w = s.do(http.MethodPost, "/api/v1/accrual/runs", gin.H{"asOf": "10/01/2026"})
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *HandlerTestSuite) TestRunAccrualRequiresAdmin() {
	w := s.do(http.MethodPost, "/api/v1/accrual/runs", gin.H{"asOf": "2026-01-10"})

	s.Equal(http.StatusForbidden, w.Code)
	s.accrual.AssertNotCalled(s.T(), "RunDailyAccrual", mock.Anything, mock.Anything)
}

func (s *HandlerTestSuite) TestRunAccrualRejectsFutureDate() {
	s.token = s.signRoleToken(testShop, testOperator, middleware.RoleAdmin)
	s.accrual.On("RunDailyAccrual", mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("%w: accrual date 2099-01-01 is after today", apperrors.ErrValidation)).Once()

	w := s.do(http.MethodPost, "/api/v1/accrual/runs", gin.H{"asOf": "2099-01-01"})

	s.Equal(http.StatusBadRequest, w.Code, w.Body.String())
	s.accrual.AssertExpectations(s.T())
}

func (s *HandlerTestSuite) TestListAccrualRunsDefaultsLimit() {
	s.accrual.On("ListAccrualRuns", mock.Anything, 30).Return([]domain.AccrualRun{}, nil).Once()

	w := s.do(http.MethodGet, "/api/v1/accrual/runs", nil)
	s.Equal(http.StatusOK, w.Code)
	s.accrual.AssertExpectations(s.T())
}

func (s *HandlerTestSuite) TestOverdueReportDefaults() {
	asOf := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	s.reporting.On("OverdueAccounts", mock.Anything, testShop, asOf, 15, 50).Return([]domain.OverdueAccount{}, nil).Once()

	w := s.do(http.MethodGet, "/api/v1/reports/overdue?asOf=2026-03-01", nil)

	s.Equal(http.StatusOK, w.Code, w.Body.String())
	var resp dto.OverdueResponse
	s.decode(w, &resp)
	s.Equal("2026-03-01", resp.AsOf)
	s.Equal(15, resp.MinDays)
	s.reporting.AssertExpectations(s.T())
}

func (s *HandlerTestSuite) TestPaymentBehaviourReport() {
	s.reporting.On("PaymentBehaviour", mock.Anything, testShop).
		Return(&domain.PaymentBehaviour{ShopID: testShop, TotalAccounts: 4, OnTimePayers: 1, OnTimePercentage: d("25")}, nil).Once()

	w := s.do(http.MethodGet, "/api/v1/reports/payment-behaviour", nil)

	s.Equal(http.StatusOK, w.Code, w.Body.String())
	var resp domain.PaymentBehaviour
	s.decode(w, &resp)
	s.Equal(1, resp.OnTimePayers)
	s.True(d("25").Equal(resp.OnTimePercentage))
	s.reporting.AssertExpectations(s.T())
}

func (s *HandlerTestSuite) TestTransactionSummaryReport() {
	s.reporting.On("TransactionSummary", mock.Anything, testShop, 30).
		Return(&domain.TransactionSummary{ShopID: testShop, Days: 30, TotalTransactions: 3}, nil).Once()
	s.reporting.On("TransactionSummary", mock.Anything, testShop, 7).
		Return(&domain.TransactionSummary{ShopID: testShop, Days: 7}, nil).Once()

	w := s.do(http.MethodGet, "/api/v1/reports/transactions", nil)
	s.Equal(http.StatusOK, w.Code, w.Body.String())
	var resp domain.TransactionSummary
	s.decode(w, &resp)
	s.Equal(3, resp.TotalTransactions)

	w = s.do(http.MethodGet, "/api/v1/reports/transactions?days=7", nil)
	s.Equal(http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/api/v1/reports/transactions?days=400", nil)
	s.Equal(http.StatusBadRequest, w.Code)
	s.reporting.AssertExpectations(s.T())
}

func (s *HandlerTestSuite) TestUpdateCustomer() {
	s.ledger.On("UpdateCustomer", mock.Anything, testShop, testAccount, mock.MatchedBy(func(r dto.UpdateCustomerRequest) bool {
		return r.Village != nil && *r.Village == "Sitapur" && r.CustomerName == nil && r.Phone == nil
	}), testOperator).Return(&domain.Account{AccountID: testAccount, ShopID: testShop, Village: "Sitapur", Status: domain.StatusActive}, nil).Once()

	w := s.do(http.MethodPut, "/api/v1/accounts/"+testAccount+"/customer", gin.H{"village": "Sitapur"})

	s.Equal(http.StatusOK, w.Code, w.Body.String())
	var resp dto.AccountResponse
	s.decode(w, &resp)
	s.Equal("Sitapur", resp.Village)
	s.ledger.AssertExpectations(s.T())

	w = s.do(http.MethodPut, "/api/v1/accounts/"+testAccount+"/customer", gin.H{"phone": "98ab"})
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *HandlerTestSuite) TestSummaryReport() {
	asOf := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	s.reporting.On("DashboardSummary", mock.Anything, testShop, asOf).
		Return(&domain.DashboardSummary{ShopID: testShop, TotalAccounts: 4}, nil).Once()

	w := s.do(http.MethodGet, "/api/v1/reports/summary?asOf=2026-03-01", nil)
	s.Equal(http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/api/v1/reports/summary?asOf=yesterday", nil)
	s.Equal(http.StatusBadRequest, w.Code)
	s.reporting.AssertExpectations(s.T())
}

func TestHandlers(t *testing.T) {
	suite.Run(t, new(HandlerTestSuite))
}
