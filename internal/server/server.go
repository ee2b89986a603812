package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/ledgerly/internal/account"
	accountdomain "github.com/smallbiznis/ledgerly/internal/account/domain"
	"github.com/smallbiznis/ledgerly/internal/audit"
	auditdomain "github.com/smallbiznis/ledgerly/internal/audit/domain"
	"github.com/smallbiznis/ledgerly/internal/auth"
	authdomain "github.com/smallbiznis/ledgerly/internal/auth/domain"
	"github.com/smallbiznis/ledgerly/internal/auth/token"
	"github.com/smallbiznis/ledgerly/internal/authorization"
	"github.com/smallbiznis/ledgerly/internal/bill"
	billdomain "github.com/smallbiznis/ledgerly/internal/bill/domain"
	"github.com/smallbiznis/ledgerly/internal/config"
	"github.com/smallbiznis/ledgerly/internal/customer"
	customerdomain "github.com/smallbiznis/ledgerly/internal/customer/domain"
	"github.com/smallbiznis/ledgerly/internal/expense"
	expensedomain "github.com/smallbiznis/ledgerly/internal/expense/domain"
	"github.com/smallbiznis/ledgerly/internal/invoice"
	invoicedomain "github.com/smallbiznis/ledgerly/internal/invoice/domain"
	"github.com/smallbiznis/ledgerly/internal/journal"
	journaldomain "github.com/smallbiznis/ledgerly/internal/journal/domain"
	"github.com/smallbiznis/ledgerly/internal/ledger"
	"github.com/smallbiznis/ledgerly/internal/observability"
	obsmiddleware "github.com/smallbiznis/ledgerly/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/ledgerly/internal/observability/metrics"
	obstracing "github.com/smallbiznis/ledgerly/internal/observability/tracing"
	"github.com/smallbiznis/ledgerly/internal/organization"
	orgdomain "github.com/smallbiznis/ledgerly/internal/organization/domain"
	"github.com/smallbiznis/ledgerly/internal/payment"
	paymentdomain "github.com/smallbiznis/ledgerly/internal/payment/domain"
	"github.com/smallbiznis/ledgerly/internal/product"
	productdomain "github.com/smallbiznis/ledgerly/internal/product/domain"
	"github.com/smallbiznis/ledgerly/internal/ratelimit"
	"github.com/smallbiznis/ledgerly/internal/report"
	reportdomain "github.com/smallbiznis/ledgerly/internal/report/domain"
	"github.com/smallbiznis/ledgerly/internal/sequence"
	"github.com/smallbiznis/ledgerly/internal/tax"
	taxdomain "github.com/smallbiznis/ledgerly/internal/tax/domain"
	"github.com/smallbiznis/ledgerly/internal/vendorpayment"
	vendorpaymentdomain "github.com/smallbiznis/ledgerly/internal/vendorpayment/domain"
	"github.com/smallbiznis/ledgerly/internal/vendors"
	vendordomain "github.com/smallbiznis/ledgerly/internal/vendors/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module wires the HTTP surface together with every feature service it
// fronts. Infrastructure modules (config, observability, db, clock,
// migrations) are composed in cmd.
var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	authorization.Module,
	audit.Module,
	auth.Module,
	ratelimit.Module,
	ledger.Module,
	sequence.Module,
	organization.Module,
	account.Module,
	customer.Module,
	vendors.Module,
	product.Module,
	tax.Module,
	invoice.Module,
	bill.Module,
	payment.Module,
	vendorpayment.Module,
	expense.Module,
	journal.Module,
	report.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server listening", zap.String("addr", srv.Addr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine *gin.Engine
	cfg    config.Config
	log    *zap.Logger

	tokens      *token.Manager
	authz       authorization.Service
	authLimiter *ratelimit.AuthLimiter

	authSvc          authdomain.Service
	orgSvc           orgdomain.Service
	accountSvc       accountdomain.Service
	customerSvc      customerdomain.Service
	vendorSvc        vendordomain.Service
	productSvc       productdomain.Service
	taxSvc           taxdomain.Service
	invoiceSvc       invoicedomain.Service
	billSvc          billdomain.Service
	paymentSvc       paymentdomain.Service
	vendorPaymentSvc vendorpaymentdomain.Service
	expenseSvc       expensedomain.Service
	journalSvc       journaldomain.Service
	reportSvc        reportdomain.Service
	auditSvc         auditdomain.Service
}

type ServerParams struct {
	fx.In

	Gin *gin.Engine
	Cfg config.Config
	Log *zap.Logger

	Tokens      *token.Manager
	AuthzSvc    authorization.Service
	AuthLimiter *ratelimit.AuthLimiter `optional:"true"`

	AuthSvc          authdomain.Service
	OrgSvc           orgdomain.Service
	AccountSvc       accountdomain.Service
	CustomerSvc      customerdomain.Service
	VendorSvc        vendordomain.Service
	ProductSvc       productdomain.Service
	TaxSvc           taxdomain.Service
	InvoiceSvc       invoicedomain.Service
	BillSvc          billdomain.Service
	PaymentSvc       paymentdomain.Service
	VendorPaymentSvc vendorpaymentdomain.Service
	ExpenseSvc       expensedomain.Service
	JournalSvc       journaldomain.Service
	ReportSvc        reportdomain.Service
	AuditSvc         auditdomain.Service
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:           p.Gin,
		cfg:              p.Cfg,
		log:              p.Log.Named("http.server"),
		tokens:           p.Tokens,
		authz:            p.AuthzSvc,
		authLimiter:      p.AuthLimiter,
		authSvc:          p.AuthSvc,
		orgSvc:           p.OrgSvc,
		accountSvc:       p.AccountSvc,
		customerSvc:      p.CustomerSvc,
		vendorSvc:        p.VendorSvc,
		productSvc:       p.ProductSvc,
		taxSvc:           p.TaxSvc,
		invoiceSvc:       p.InvoiceSvc,
		billSvc:          p.BillSvc,
		paymentSvc:       p.PaymentSvc,
		vendorPaymentSvc: p.VendorPaymentSvc,
		expenseSvc:       p.ExpenseSvc,
		journalSvc:       p.JournalSvc,
		reportSvc:        p.ReportSvc,
		auditSvc:         p.AuditSvc,
	}

	s.registerRoutes()
	return s
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerRoutes() {
	v1 := s.engine.Group("/v1")

	authGroup := v1.Group("/auth")
	authGroup.POST("/register", s.AuthRateLimit(), s.Register)
	authGroup.POST("/login", s.AuthRateLimit(), s.Login)
	authGroup.GET("/me", s.AuthMiddleware(), s.Me)

	api := v1.Group("", s.AuthMiddleware(), s.RequestAuditContext())

	org := api.Group("/organization")
	org.GET("", s.authorize(authorization.ObjectOrganization, authorization.ActionOrganizationView), s.GetOrganization)
	org.PATCH("", s.authorize(authorization.ObjectOrganization, authorization.ActionOrganizationUpdate), s.UpdateOrganization)

	accounts := api.Group("/accounts")
	accounts.GET("", s.authorize(authorization.ObjectAccount, authorization.ActionAccountView), s.ListAccounts)
	accounts.POST("", s.authorize(authorization.ObjectAccount, authorization.ActionAccountCreate), s.CreateAccount)
	accounts.GET("/:id", s.authorize(authorization.ObjectAccount, authorization.ActionAccountView), s.GetAccount)
	accounts.PATCH("/:id", s.authorize(authorization.ObjectAccount, authorization.ActionAccountUpdate), s.UpdateAccount)
	accounts.DELETE("/:id", s.authorize(authorization.ObjectAccount, authorization.ActionAccountDelete), s.DeleteAccount)
	accounts.GET("/:id/transactions", s.authorize(authorization.ObjectAccount, authorization.ActionAccountView), s.ListAccountTransactions)

	customers := api.Group("/customers")
	customers.GET("", s.authorize(authorization.ObjectCustomer, authorization.ActionCustomerView), s.ListCustomers)
	customers.POST("", s.authorize(authorization.ObjectCustomer, authorization.ActionCustomerCreate), s.CreateCustomer)
	customers.GET("/:id", s.authorize(authorization.ObjectCustomer, authorization.ActionCustomerView), s.GetCustomer)
	customers.PATCH("/:id", s.authorize(authorization.ObjectCustomer, authorization.ActionCustomerUpdate), s.UpdateCustomer)
	customers.DELETE("/:id", s.authorize(authorization.ObjectCustomer, authorization.ActionCustomerDelete), s.DeleteCustomer)

	vendorsGroup := api.Group("/vendors")
	vendorsGroup.GET("", s.authorize(authorization.ObjectVendor, authorization.ActionVendorView), s.ListVendors)
	vendorsGroup.POST("", s.authorize(authorization.ObjectVendor, authorization.ActionVendorCreate), s.CreateVendor)
	vendorsGroup.GET("/:id", s.authorize(authorization.ObjectVendor, authorization.ActionVendorView), s.GetVendor)
	vendorsGroup.PATCH("/:id", s.authorize(authorization.ObjectVendor, authorization.ActionVendorUpdate), s.UpdateVendor)
	vendorsGroup.DELETE("/:id", s.authorize(authorization.ObjectVendor, authorization.ActionVendorDelete), s.DeleteVendor)

	products := api.Group("/products")
	products.GET("", s.authorize(authorization.ObjectProduct, authorization.ActionProductView), s.ListProducts)
	products.POST("", s.authorize(authorization.ObjectProduct, authorization.ActionProductCreate), s.CreateProduct)
	products.GET("/:id", s.authorize(authorization.ObjectProduct, authorization.ActionProductView), s.GetProduct)
	products.PATCH("/:id", s.authorize(authorization.ObjectProduct, authorization.ActionProductUpdate), s.UpdateProduct)
	products.DELETE("/:id", s.authorize(authorization.ObjectProduct, authorization.ActionProductDelete), s.DeleteProduct)

	taxRates := api.Group("/tax-rates")
	taxRates.GET("", s.authorize(authorization.ObjectTaxRate, authorization.ActionTaxRateView), s.ListTaxRates)
	taxRates.POST("", s.authorize(authorization.ObjectTaxRate, authorization.ActionTaxRateCreate), s.CreateTaxRate)
	taxRates.GET("/:id", s.authorize(authorization.ObjectTaxRate, authorization.ActionTaxRateView), s.GetTaxRate)
	taxRates.PATCH("/:id", s.authorize(authorization.ObjectTaxRate, authorization.ActionTaxRateUpdate), s.UpdateTaxRate)
	taxRates.DELETE("/:id", s.authorize(authorization.ObjectTaxRate, authorization.ActionTaxRateDelete), s.DeleteTaxRate)

	invoices := api.Group("/invoices")
	invoices.GET("", s.authorize(authorization.ObjectInvoice, authorization.ActionInvoiceView), s.ListInvoices)
	invoices.POST("", s.authorize(authorization.ObjectInvoice, authorization.ActionInvoiceCreate), s.CreateInvoice)
	invoices.GET("/:id", s.authorize(authorization.ObjectInvoice, authorization.ActionInvoiceView), s.GetInvoice)
	invoices.PUT("/:id", s.authorize(authorization.ObjectInvoice, authorization.ActionInvoiceUpdate), s.UpdateInvoice)
	invoices.DELETE("/:id", s.authorize(authorization.ObjectInvoice, authorization.ActionInvoiceDelete), s.DeleteInvoice)
	invoices.POST("/:id/send", s.authorize(authorization.ObjectInvoice, authorization.ActionInvoiceSend), s.SendInvoice)
	invoices.POST("/:id/void", s.authorize(authorization.ObjectInvoice, authorization.ActionInvoiceVoid), s.VoidInvoice)
	invoices.POST("/:id/payments", s.authorize(authorization.ObjectPayment, authorization.ActionPaymentCreate), s.ApplyPaymentToInvoice)

	bills := api.Group("/bills")
	bills.GET("", s.authorize(authorization.ObjectBill, authorization.ActionBillView), s.ListBills)
	bills.POST("", s.authorize(authorization.ObjectBill, authorization.ActionBillCreate), s.CreateBill)
	bills.GET("/:id", s.authorize(authorization.ObjectBill, authorization.ActionBillView), s.GetBill)
	bills.PUT("/:id", s.authorize(authorization.ObjectBill, authorization.ActionBillUpdate), s.UpdateBill)
	bills.DELETE("/:id", s.authorize(authorization.ObjectBill, authorization.ActionBillDelete), s.DeleteBill)
	bills.POST("/:id/pay", s.authorize(authorization.ObjectBill, authorization.ActionBillPay), s.PayBill)
	bills.POST("/:id/void", s.authorize(authorization.ObjectBill, authorization.ActionBillVoid), s.VoidBill)

	payments := api.Group("/payments")
	payments.GET("", s.authorize(authorization.ObjectPayment, authorization.ActionPaymentView), s.ListPayments)
	payments.POST("", s.authorize(authorization.ObjectPayment, authorization.ActionPaymentCreate), s.CreatePayment)
	payments.GET("/:id", s.authorize(authorization.ObjectPayment, authorization.ActionPaymentView), s.GetPayment)
	payments.PATCH("/:id", s.authorize(authorization.ObjectPayment, authorization.ActionPaymentCreate), s.UpdatePayment)
	payments.DELETE("/:id", s.authorize(authorization.ObjectPayment, authorization.ActionPaymentVoid), s.VoidPayment)

	vendorPayments := api.Group("/vendor-payments")
	vendorPayments.GET("", s.authorize(authorization.ObjectVendorPayment, authorization.ActionVendorPaymentView), s.ListVendorPayments)
	vendorPayments.POST("", s.authorize(authorization.ObjectVendorPayment, authorization.ActionVendorPaymentCreate), s.CreateVendorPayment)
	vendorPayments.GET("/:id", s.authorize(authorization.ObjectVendorPayment, authorization.ActionVendorPaymentView), s.GetVendorPayment)
	vendorPayments.PATCH("/:id", s.authorize(authorization.ObjectVendorPayment, authorization.ActionVendorPaymentCreate), s.UpdateVendorPayment)
	vendorPayments.DELETE("/:id", s.authorize(authorization.ObjectVendorPayment, authorization.ActionVendorPaymentVoid), s.VoidVendorPayment)

	expenses := api.Group("/expenses")
	expenses.GET("", s.authorize(authorization.ObjectExpense, authorization.ActionExpenseView), s.ListExpenses)
	expenses.POST("", s.authorize(authorization.ObjectExpense, authorization.ActionExpenseCreate), s.CreateExpense)
	expenses.GET("/:id", s.authorize(authorization.ObjectExpense, authorization.ActionExpenseView), s.GetExpense)
	expenses.PATCH("/:id", s.authorize(authorization.ObjectExpense, authorization.ActionExpenseCreate), s.UpdateExpense)
	expenses.DELETE("/:id", s.authorize(authorization.ObjectExpense, authorization.ActionExpenseCreate), s.DeleteExpense)
	expenses.POST("/:id/void", s.authorize(authorization.ObjectExpense, authorization.ActionExpenseVoid), s.VoidExpense)

	journalEntries := api.Group("/journal-entries")
	journalEntries.GET("", s.authorize(authorization.ObjectJournalEntry, authorization.ActionJournalEntryView), s.ListJournalEntries)
	journalEntries.POST("", s.authorize(authorization.ObjectJournalEntry, authorization.ActionJournalEntryCreate), s.CreateJournalEntry)
	journalEntries.GET("/:id", s.authorize(authorization.ObjectJournalEntry, authorization.ActionJournalEntryView), s.GetJournalEntry)
	journalEntries.PATCH("/:id", s.authorize(authorization.ObjectJournalEntry, authorization.ActionJournalEntryCreate), s.UpdateJournalEntry)
	journalEntries.POST("/:id/void", s.authorize(authorization.ObjectJournalEntry, authorization.ActionJournalEntryVoid), s.VoidJournalEntry)

	reports := api.Group("/reports", s.authorize(authorization.ObjectReport, authorization.ActionReportView))
	reports.GET("/account-balances", s.AccountBalancesReport)
	reports.GET("/trial-balance", s.TrialBalanceReport)
	reports.GET("/profit-loss", s.ProfitAndLossReport)
	reports.GET("/balance-sheet", s.BalanceSheetReport)
	reports.GET("/accounts-receivable", s.ReceivableAgingReport)
	reports.GET("/accounts-payable", s.PayableAgingReport)
	reports.GET("/transaction-journal", s.TransactionJournalReport)

	auditLogs := api.Group("/audit-logs")
	auditLogs.GET("", s.authorize(authorization.ObjectAuditLog, authorization.ActionAuditLogView), s.ListAuditLogs)
}
