// Package e2e drives the assembled HTTP server end to end: register a
// tenant, move documents through their lifecycles and read the books back
// through the reports, all over the wire format.
package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	accountdomain "github.com/smallbiznis/ledgerly/internal/account/domain"
	accountrepository "github.com/smallbiznis/ledgerly/internal/account/repository"
	accountservice "github.com/smallbiznis/ledgerly/internal/account/service"
	auditdomain "github.com/smallbiznis/ledgerly/internal/audit/domain"
	auditrepository "github.com/smallbiznis/ledgerly/internal/audit/repository"
	auditservice "github.com/smallbiznis/ledgerly/internal/audit/service"
	authdomain "github.com/smallbiznis/ledgerly/internal/auth/domain"
	authrepository "github.com/smallbiznis/ledgerly/internal/auth/repository"
	authservice "github.com/smallbiznis/ledgerly/internal/auth/service"
	"github.com/smallbiznis/ledgerly/internal/auth/token"
	"github.com/smallbiznis/ledgerly/internal/authorization"
	billdomain "github.com/smallbiznis/ledgerly/internal/bill/domain"
	billrepository "github.com/smallbiznis/ledgerly/internal/bill/repository"
	billservice "github.com/smallbiznis/ledgerly/internal/bill/service"
	"github.com/smallbiznis/ledgerly/internal/clock"
	"github.com/smallbiznis/ledgerly/internal/config"
	customerdomain "github.com/smallbiznis/ledgerly/internal/customer/domain"
	customerrepository "github.com/smallbiznis/ledgerly/internal/customer/repository"
	customerservice "github.com/smallbiznis/ledgerly/internal/customer/service"
	expensedomain "github.com/smallbiznis/ledgerly/internal/expense/domain"
	expenserepository "github.com/smallbiznis/ledgerly/internal/expense/repository"
	expenseservice "github.com/smallbiznis/ledgerly/internal/expense/service"
	invoicedomain "github.com/smallbiznis/ledgerly/internal/invoice/domain"
	invoicerepository "github.com/smallbiznis/ledgerly/internal/invoice/repository"
	invoiceservice "github.com/smallbiznis/ledgerly/internal/invoice/service"
	journaldomain "github.com/smallbiznis/ledgerly/internal/journal/domain"
	journalrepository "github.com/smallbiznis/ledgerly/internal/journal/repository"
	journalservice "github.com/smallbiznis/ledgerly/internal/journal/service"
	ledgerdomain "github.com/smallbiznis/ledgerly/internal/ledger/domain"
	ledgerrepository "github.com/smallbiznis/ledgerly/internal/ledger/repository"
	ledgerservice "github.com/smallbiznis/ledgerly/internal/ledger/service"
	"github.com/smallbiznis/ledgerly/internal/observability"
	obsmetrics "github.com/smallbiznis/ledgerly/internal/observability/metrics"
	orgdomain "github.com/smallbiznis/ledgerly/internal/organization/domain"
	orgrepository "github.com/smallbiznis/ledgerly/internal/organization/repository"
	orgservice "github.com/smallbiznis/ledgerly/internal/organization/service"
	paymentdomain "github.com/smallbiznis/ledgerly/internal/payment/domain"
	paymentrepository "github.com/smallbiznis/ledgerly/internal/payment/repository"
	paymentservice "github.com/smallbiznis/ledgerly/internal/payment/service"
	productdomain "github.com/smallbiznis/ledgerly/internal/product/domain"
	productrepository "github.com/smallbiznis/ledgerly/internal/product/repository"
	productservice "github.com/smallbiznis/ledgerly/internal/product/service"
	reportrepository "github.com/smallbiznis/ledgerly/internal/report/repository"
	reportservice "github.com/smallbiznis/ledgerly/internal/report/service"
	"github.com/smallbiznis/ledgerly/internal/server"
	sequencedomain "github.com/smallbiznis/ledgerly/internal/sequence/domain"
	sequencerepository "github.com/smallbiznis/ledgerly/internal/sequence/repository"
	sequenceservice "github.com/smallbiznis/ledgerly/internal/sequence/service"
	taxdomain "github.com/smallbiznis/ledgerly/internal/tax/domain"
	taxrepository "github.com/smallbiznis/ledgerly/internal/tax/repository"
	taxservice "github.com/smallbiznis/ledgerly/internal/tax/service"
	vendorpaymentdomain "github.com/smallbiznis/ledgerly/internal/vendorpayment/domain"
	vendorpaymentrepository "github.com/smallbiznis/ledgerly/internal/vendorpayment/repository"
	vendorpaymentservice "github.com/smallbiznis/ledgerly/internal/vendorpayment/service"
	vendordomain "github.com/smallbiznis/ledgerly/internal/vendors/domain"
	vendorrepository "github.com/smallbiznis/ledgerly/internal/vendors/repository"
	vendorservice "github.com/smallbiznis/ledgerly/internal/vendors/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type testEnv struct {
	engine *gin.Engine
	db     *gorm.DB
}

// newTestEnv assembles the full server against an in-memory database, the
// same wiring cmd/ledgerly builds, minus the network listener.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&orgdomain.Organization{},
		&authdomain.User{},
		&accountdomain.Account{},
		&customerdomain.Customer{},
		&vendordomain.Vendor{},
		&productdomain.Product{},
		&taxdomain.TaxRate{},
		&invoicedomain.Invoice{},
		&invoicedomain.InvoiceLineItem{},
		&billdomain.Bill{},
		&billdomain.BillLineItem{},
		&paymentdomain.Payment{},
		&paymentdomain.PaymentApplication{},
		&vendorpaymentdomain.VendorPayment{},
		&vendorpaymentdomain.BillPaymentApplication{},
		&expensedomain.Expense{},
		&journaldomain.JournalEntry{},
		&journaldomain.JournalEntryLine{},
		&sequencedomain.DocumentSequence{},
		&ledgerdomain.LedgerEntry{},
		&auditdomain.AuditLog{},
	))

	node, err := snowflake.NewNode(8)
	require.NoError(t, err)
	log := zap.NewNop()
	fake := clock.NewFakeClock(time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC))
	cfg := config.Config{
		AppName:    "ledgerly",
		AuthSecret: "e2e-test-secret",
		TokenTTL:   time.Hour,
	}

	tokens, err := token.NewManager(cfg)
	require.NoError(t, err)
	enforcer, err := authorization.NewEnforcer(db)
	require.NoError(t, err)

	ledgerSvc := ledgerservice.NewService(ledgerservice.Params{
		Log:   log,
		GenID: node,
		Repo:  ledgerrepository.Provide(),
	})
	sequenceSvc := sequenceservice.NewService(sequenceservice.Params{
		Log:   log,
		GenID: node,
		Repo:  sequencerepository.Provide(),
	})
	auditSvc := auditservice.NewService(auditservice.Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Repo:  auditrepository.Provide(),
	})
	authzSvc := authorization.NewService(authorization.Params{
		DB:       db,
		Log:      log,
		Enforcer: enforcer,
		Audit:    auditSvc,
	})
	accountSvc := accountservice.New(accountservice.Params{
		DB:         db,
		Log:        log,
		GenID:      node,
		Clock:      fake,
		Repo:       accountrepository.Provide(),
		Orgs:       orgrepository.Provide(),
		Journals:   journalrepository.Provide(),
		Ledger:     ledgerSvc,
		LedgerRepo: ledgerrepository.Provide(),
		Sequence:   sequenceSvc,
		Audit:      auditSvc,
	})
	authSvc := authservice.New(authservice.Params{
		DB:        db,
		Log:       log,
		GenID:     node,
		Repo:      authrepository.Provide(),
		Orgs:      orgrepository.Provide(),
		Accounts:  accountSvc,
		Sequences: sequenceSvc,
		Tokens:    tokens,
		Audit:     auditSvc,
	})
	orgSvc := orgservice.New(orgservice.Params{
		DB:   db,
		Log:  log,
		Repo: orgrepository.Provide(),
	})
	customerSvc := customerservice.New(customerservice.Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Repo:  customerrepository.Provide(),
		Audit: auditSvc,
	})
	vendorSvc := vendorservice.New(vendorservice.Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Repo:  vendorrepository.Provide(),
		Audit: auditSvc,
	})
	productSvc := productservice.New(productservice.Params{
		DB:       db,
		Log:      log,
		GenID:    node,
		Repo:     productrepository.Provide(),
		Accounts: accountrepository.Provide(),
		Audit:    auditSvc,
	})
	taxSvc := taxservice.New(taxservice.Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Repo:  taxrepository.Provide(),
		Audit: auditSvc,
	})
	invoiceSvc := invoiceservice.NewService(invoiceservice.Params{
		DB:        db,
		Log:       log,
		GenID:     node,
		Clock:     fake,
		Repo:      invoicerepository.Provide(),
		Customers: customerrepository.Provide(),
		Accounts:  accountrepository.Provide(),
		Products:  productrepository.Provide(),
		TaxRates:  taxrepository.Provide(),
		Orgs:      orgrepository.Provide(),
		Ledger:    ledgerSvc,
		Sequence:  sequenceSvc,
		Audit:     auditSvc,
	})
	billSvc := billservice.NewService(billservice.Params{
		DB:       db,
		Log:      log,
		GenID:    node,
		Clock:    fake,
		Repo:     billrepository.Provide(),
		Vendors:  vendorrepository.Provide(),
		Accounts: accountrepository.Provide(),
		TaxRates: taxrepository.Provide(),
		Orgs:     orgrepository.Provide(),
		Ledger:   ledgerSvc,
		Sequence: sequenceSvc,
		Audit:    auditSvc,
	})
	paymentSvc := paymentservice.NewService(paymentservice.Params{
		DB:         db,
		Log:        log,
		GenID:      node,
		Clock:      fake,
		Repo:       paymentrepository.Provide(),
		Invoices:   invoicerepository.Provide(),
		InvoiceSvc: invoiceSvc,
		Customers:  customerrepository.Provide(),
		Accounts:   accountrepository.Provide(),
		Orgs:       orgrepository.Provide(),
		Ledger:     ledgerSvc,
		Sequence:   sequenceSvc,
		Audit:      auditSvc,
	})
	vendorPaymentSvc := vendorpaymentservice.NewService(vendorpaymentservice.Params{
		DB:       db,
		Log:      log,
		GenID:    node,
		Clock:    fake,
		Repo:     vendorpaymentrepository.Provide(),
		Bills:    billrepository.Provide(),
		BillSvc:  billSvc,
		Vendors:  vendorrepository.Provide(),
		Accounts: accountrepository.Provide(),
		Orgs:     orgrepository.Provide(),
		Ledger:   ledgerSvc,
		Sequence: sequenceSvc,
		Audit:    auditSvc,
	})
	expenseSvc := expenseservice.NewService(expenseservice.Params{
		DB:       db,
		Log:      log,
		GenID:    node,
		Clock:    fake,
		Repo:     expenserepository.Provide(),
		Vendors:  vendorrepository.Provide(),
		Accounts: accountrepository.Provide(),
		Orgs:     orgrepository.Provide(),
		Ledger:   ledgerSvc,
		Sequence: sequenceSvc,
		Audit:    auditSvc,
	})
	journalSvc := journalservice.NewService(journalservice.Params{
		DB:       db,
		Log:      log,
		GenID:    node,
		Clock:    fake,
		Repo:     journalrepository.Provide(),
		Accounts: accountrepository.Provide(),
		Orgs:     orgrepository.Provide(),
		Ledger:   ledgerSvc,
		Sequence: sequenceSvc,
		Audit:    auditSvc,
	})
	reportingHolder, err := config.NewReportingConfigHolder(log)
	require.NoError(t, err)
	reportSvc := reportservice.NewService(reportservice.Params{
		DB:        db,
		Log:       log,
		Clock:     fake,
		Repo:      reportrepository.Provide(),
		Orgs:      orgrepository.Provide(),
		Reporting: reportingHolder,
	})

	httpMetrics, err := obsmetrics.NewHTTPMetrics(obsmetrics.Config{ServiceName: "ledgerly"}, noop.NewMeterProvider())
	require.NoError(t, err)
	engine := server.NewEngine(observability.Config{ServiceName: "ledgerly", Environment: "test"}, httpMetrics)
	server.NewServer(server.ServerParams{
		Gin:              engine,
		Cfg:              cfg,
		Log:              log,
		Tokens:           tokens,
		AuthzSvc:         authzSvc,
		AuthSvc:          authSvc,
		OrgSvc:           orgSvc,
		AccountSvc:       accountSvc,
		CustomerSvc:      customerSvc,
		VendorSvc:        vendorSvc,
		ProductSvc:       productSvc,
		TaxSvc:           taxSvc,
		InvoiceSvc:       invoiceSvc,
		BillSvc:          billSvc,
		PaymentSvc:       paymentSvc,
		VendorPaymentSvc: vendorPaymentSvc,
		ExpenseSvc:       expenseSvc,
		JournalSvc:       journalSvc,
		ReportSvc:        reportSvc,
		AuditSvc:         auditSvc,
	})

	return &testEnv{engine: engine, db: db}
}

func (e *testEnv) do(t *testing.T, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	e.engine.ServeHTTP(rec, req)
	return rec
}

func decodeInto(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), "body: %s", rec.Body.String())
}

// register provisions a fresh tenant and returns the bearer token with the
// signup response.
func (e *testEnv) register(t *testing.T, email, orgName string) (string, authdomain.AuthResponse) {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/v1/auth/register", "", map[string]any{
		"email":            email,
		"password":         "Pass123!",
		"firstName":        "Casey",
		"lastName":         "Jordan",
		"organizationName": orgName,
	})
	require.Equal(t, http.StatusCreated, rec.Code, "register: %s", rec.Body.String())

	var resp authdomain.AuthResponse
	decodeInto(t, rec, &resp)
	require.NotEmpty(t, resp.Token)
	return resp.Token, resp
}

func (e *testEnv) createCustomer(t *testing.T, bearer, name string) customerdomain.Customer {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/v1/customers", bearer, map[string]any{"name": name})
	require.Equal(t, http.StatusCreated, rec.Code, "create customer: %s", rec.Body.String())
	var customer customerdomain.Customer
	decodeInto(t, rec, &customer)
	return customer
}

func (e *testEnv) accountByNumber(t *testing.T, orgID snowflake.ID, number string) accountdomain.Account {
	t.Helper()
	var account accountdomain.Account
	require.NoError(t, e.db.Where("org_id = ? AND account_number = ?", orgID, number).First(&account).Error)
	return account
}

func (e *testEnv) ledgerEntries(t *testing.T, orgID, sourceID snowflake.ID) []ledgerdomain.LedgerEntry {
	t.Helper()
	var entries []ledgerdomain.LedgerEntry
	require.NoError(t, e.db.
		Where("org_id = ? AND source_id = ?", orgID, sourceID).
		Order("id asc").Find(&entries).Error)
	return entries
}

func TestRegisterProvisionsDefaultChart(t *testing.T) {
	env := newTestEnv(t)
	bearer, resp := env.register(t, "a@x.com", "Demo")
	require.NotNil(t, resp.Organization)

	rec := env.do(t, http.MethodGet, "/v1/accounts?type=asset", bearer, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var page struct {
		Data []accountdomain.Account `json:"data"`
	}
	decodeInto(t, rec, &page)
	require.NotEmpty(t, page.Data)

	foundAR := false
	for _, account := range page.Data {
		assert.Equal(t, accountdomain.AccountTypeAsset, account.Type)
		if account.Subtype == accountdomain.SubtypeAccountsReceivable {
			foundAR = true
			assert.True(t, account.IsSystemAccount)
		}
	}
	assert.True(t, foundAR, "default chart must include a system AR account")
}

func TestUnauthenticatedRequestRejected(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/v1/accounts", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/v1/accounts", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// Walks one invoice through draft, sent, partially paid, paid, and a void
// that restores the partial state, verifying amounts, postings and the
// trial balance after every step.
func TestInvoiceLifecycle(t *testing.T) {
	env := newTestEnv(t)
	bearer, signup := env.register(t, "books@acme.test", "Acme Books")
	orgID := signup.Organization.ID
	customer := env.createCustomer(t, bearer, "Acme")

	rec := env.do(t, http.MethodPost, "/v1/invoices", bearer, map[string]any{
		"customerId": customer.ID.String(),
		"lineItems": []map[string]any{
			{"description": "Consulting", "quantity": 10, "unitPrice": 150},
			{"description": "Setup fee", "quantity": 1, "unitPrice": 500},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var invoice invoicedomain.InvoiceDetail
	decodeInto(t, rec, &invoice)
	assert.Equal(t, invoicedomain.InvoiceStatusDraft, invoice.Status)
	assert.True(t, invoice.Subtotal.Equal(decimal.NewFromInt(2000)), "subtotal: %s", invoice.Subtotal)
	assert.True(t, invoice.Total.Equal(decimal.NewFromInt(2000)))
	assert.True(t, invoice.AmountDue.Equal(decimal.NewFromInt(2000)))

	// A draft writes nothing to the ledger.
	require.Empty(t, env.ledgerEntries(t, orgID, invoice.ID))

	rec = env.do(t, http.MethodPost, fmt.Sprintf("/v1/invoices/%s/send", invoice.ID), bearer, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var sent invoicedomain.InvoiceDetail
	decodeInto(t, rec, &sent)
	assert.Equal(t, invoicedomain.InvoiceStatusSent, sent.Status)
	assert.NotNil(t, sent.SentAt)

	ar := env.accountByNumber(t, orgID, "1100")
	entries := env.ledgerEntries(t, orgID, invoice.ID)
	require.NotEmpty(t, entries)
	arDebit := decimal.Zero
	credits := decimal.Zero
	for _, entry := range entries {
		if entry.AccountID == ar.ID {
			arDebit = arDebit.Add(entry.Debit)
		}
		credits = credits.Add(entry.Credit)
	}
	assert.True(t, arDebit.Equal(decimal.NewFromInt(2000)), "AR debit: %s", arDebit)
	assert.True(t, credits.Equal(decimal.NewFromInt(2000)), "credits: %s", credits)

	// Partial payment of 500.
	checking := env.accountByNumber(t, orgID, "1010")
	rec = env.do(t, http.MethodPost, fmt.Sprintf("/v1/invoices/%s/payments", invoice.ID), bearer, map[string]any{
		"amount":           500,
		"depositAccountId": checking.ID.String(),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodGet, fmt.Sprintf("/v1/invoices/%s", invoice.ID), bearer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var partial invoicedomain.InvoiceDetail
	decodeInto(t, rec, &partial)
	assert.Equal(t, invoicedomain.InvoiceStatusPartial, partial.Status)
	assert.True(t, partial.AmountPaid.Equal(decimal.NewFromInt(500)))
	assert.True(t, partial.AmountDue.Equal(decimal.NewFromInt(1500)))

	// Remaining 1500 settles it.
	rec = env.do(t, http.MethodPost, fmt.Sprintf("/v1/invoices/%s/payments", invoice.ID), bearer, map[string]any{
		"amount":           1500,
		"depositAccountId": checking.ID.String(),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var secondPayment paymentdomain.PaymentDetail
	decodeInto(t, rec, &secondPayment)

	rec = env.do(t, http.MethodGet, fmt.Sprintf("/v1/invoices/%s", invoice.ID), bearer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var paid invoicedomain.InvoiceDetail
	decodeInto(t, rec, &paid)
	assert.Equal(t, invoicedomain.InvoiceStatusPaid, paid.Status)
	assert.True(t, paid.AmountPaid.Equal(decimal.NewFromInt(2000)))
	assert.True(t, paid.AmountDue.IsZero())
	assert.NotNil(t, paid.PaidAt)

	// Voiding the second payment restores the partial state.
	rec = env.do(t, http.MethodDelete, fmt.Sprintf("/v1/payments/%s", secondPayment.ID), bearer, nil)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodGet, fmt.Sprintf("/v1/invoices/%s", invoice.ID), bearer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var restored invoicedomain.InvoiceDetail
	decodeInto(t, rec, &restored)
	assert.Equal(t, invoicedomain.InvoiceStatusPartial, restored.Status)
	assert.True(t, restored.AmountPaid.Equal(decimal.NewFromInt(500)))
	assert.True(t, restored.AmountDue.Equal(decimal.NewFromInt(1500)))
	assert.Nil(t, restored.PaidAt)

	// The books still tie after the whole dance.
	rec = env.do(t, http.MethodGet, "/v1/reports/trial-balance", bearer, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var trialBalance struct {
		TotalDebits  decimal.Decimal `json:"total_debits"`
		TotalCredits decimal.Decimal `json:"total_credits"`
	}
	decodeInto(t, rec, &trialBalance)
	assert.True(t, trialBalance.TotalDebits.Equal(trialBalance.TotalCredits),
		"debits %s, credits %s", trialBalance.TotalDebits, trialBalance.TotalCredits)
}

func TestJournalEntryMustBalance(t *testing.T) {
	env := newTestEnv(t)
	bearer, signup := env.register(t, "books@balance.test", "Balance Co")
	orgID := signup.Organization.ID

	checking := env.accountByNumber(t, orgID, "1010")
	equity := env.accountByNumber(t, orgID, "3000")

	rec := env.do(t, http.MethodPost, "/v1/journal-entries", bearer, map[string]any{
		"lines": []map[string]any{
			{"accountId": checking.ID.String(), "debit": 100},
			{"accountId": equity.ID.String(), "credit": 99},
		},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	var body struct {
		Error string `json:"error"`
	}
	decodeInto(t, rec, &body)
	assert.Contains(t, body.Error, "unbalanced")
}

func TestCrossTenantReadsLookLikeMisses(t *testing.T) {
	env := newTestEnv(t)
	bearerOne, _ := env.register(t, "one@tenant.test", "Tenant One")
	bearerTwo, _ := env.register(t, "two@tenant.test", "Tenant Two")

	customer := env.createCustomer(t, bearerOne, "Shared Name")
	rec := env.do(t, http.MethodPost, "/v1/invoices", bearerOne, map[string]any{
		"customerId": customer.ID.String(),
		"lineItems": []map[string]any{
			{"description": "Work", "quantity": 1, "unitPrice": 100},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var invoice invoicedomain.InvoiceDetail
	decodeInto(t, rec, &invoice)

	// The other tenant sees a miss, not a refusal.
	rec = env.do(t, http.MethodGet, fmt.Sprintf("/v1/invoices/%s", invoice.ID), bearerTwo, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/v1/invoices", bearerTwo, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var page struct {
		Data []invoicedomain.Invoice `json:"data"`
	}
	decodeInto(t, rec, &page)
	assert.Empty(t, page.Data)

	// The owner still sees it.
	rec = env.do(t, http.MethodGet, fmt.Sprintf("/v1/invoices/%s", invoice.ID), bearerOne, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestExpensePostingGatedOnPaymentAccount(t *testing.T) {
	env := newTestEnv(t)
	bearer, signup := env.register(t, "books@expense.test", "Expense Co")
	orgID := signup.Organization.ID

	rent := env.accountByNumber(t, orgID, "6000")
	checking := env.accountByNumber(t, orgID, "1010")

	rec := env.do(t, http.MethodPost, "/v1/expenses", bearer, map[string]any{
		"accountId":        rent.ID.String(),
		"paymentAccountId": checking.ID.String(),
		"amount":           250,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var posted expensedomain.Expense
	decodeInto(t, rec, &posted)
	assert.Len(t, env.ledgerEntries(t, orgID, posted.ID), 2)

	rec = env.do(t, http.MethodPost, "/v1/expenses", bearer, map[string]any{
		"accountId": rent.ID.String(),
		"amount":    80,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var unposted expensedomain.Expense
	decodeInto(t, rec, &unposted)
	assert.Empty(t, env.ledgerEntries(t, orgID, unposted.ID))
}
