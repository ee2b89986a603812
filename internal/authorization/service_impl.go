package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	auditdomain "github.com/smallbiznis/ledgerly/internal/audit/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectOrganization  = "organization"
	ObjectAccount       = "account"
	ObjectCustomer      = "customer"
	ObjectVendor        = "vendor"
	ObjectProduct       = "product"
	ObjectTaxRate       = "tax_rate"
	ObjectInvoice       = "invoice"
	ObjectBill          = "bill"
	ObjectPayment       = "payment"
	ObjectVendorPayment = "vendor_payment"
	ObjectExpense       = "expense"
	ObjectJournalEntry  = "journal_entry"
	ObjectReport        = "report"
	ObjectAuditLog      = "audit_log"
)

const (
	ActionOrganizationView   = "organization.view"
	ActionOrganizationUpdate = "organization.update"

	ActionAccountView   = "account.view"
	ActionAccountCreate = "account.create"
	ActionAccountUpdate = "account.update"
	ActionAccountDelete = "account.delete"

	ActionCustomerView   = "customer.view"
	ActionCustomerCreate = "customer.create"
	ActionCustomerUpdate = "customer.update"
	ActionCustomerDelete = "customer.delete"

	ActionVendorView   = "vendor.view"
	ActionVendorCreate = "vendor.create"
	ActionVendorUpdate = "vendor.update"
	ActionVendorDelete = "vendor.delete"

	ActionProductView   = "product.view"
	ActionProductCreate = "product.create"
	ActionProductUpdate = "product.update"
	ActionProductDelete = "product.delete"

	ActionTaxRateView   = "tax_rate.view"
	ActionTaxRateCreate = "tax_rate.create"
	ActionTaxRateUpdate = "tax_rate.update"
	ActionTaxRateDelete = "tax_rate.delete"

	ActionInvoiceView   = "invoice.view"
	ActionInvoiceCreate = "invoice.create"
	ActionInvoiceUpdate = "invoice.update"
	ActionInvoiceDelete = "invoice.delete"
	ActionInvoiceSend   = "invoice.send"
	ActionInvoiceVoid   = "invoice.void"

	ActionBillView   = "bill.view"
	ActionBillCreate = "bill.create"
	ActionBillUpdate = "bill.update"
	ActionBillDelete = "bill.delete"
	ActionBillPay    = "bill.pay"
	ActionBillVoid   = "bill.void"

	ActionPaymentView   = "payment.view"
	ActionPaymentCreate = "payment.create"
	ActionPaymentVoid   = "payment.void"

	ActionVendorPaymentView   = "vendor_payment.view"
	ActionVendorPaymentCreate = "vendor_payment.create"
	ActionVendorPaymentVoid   = "vendor_payment.void"

	ActionExpenseView   = "expense.view"
	ActionExpenseCreate = "expense.create"
	ActionExpenseVoid   = "expense.void"

	ActionJournalEntryView   = "journal_entry.view"
	ActionJournalEntryCreate = "journal_entry.create"
	ActionJournalEntryVoid   = "journal_entry.void"

	ActionReportView = "report.view"

	ActionAuditLogView = "audit_log.view"
)

const (
	roleOwner      = "role:owner"
	roleAccountant = "role:accountant"
	roleViewer     = "role:viewer"
	roleSystem     = "role:system"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
	Audit    auditdomain.Service `optional:"true"`
}

type ServiceImpl struct {
	db       *gorm.DB
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
	audit    auditdomain.Service
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		db:       p.DB,
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
		audit:    p.Audit,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, actor string, orgID string, object string, action string) error {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return ErrInvalidActor
	}
	orgID = strings.TrimSpace(orgID)
	if orgID == "" {
		return ErrInvalidOrganization
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	subject, roleName, err := s.resolveActor(ctx, actor, orgID)
	if err != nil {
		s.auditDenied(ctx, actor, orgID, object, action)
		return err
	}

	domain := fmt.Sprintf("org:%s", orgID)
	if err := s.ensureGrouping(subject, roleName, domain); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, domain, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.auditDenied(ctx, actor, orgID, object, action)
		return ErrForbidden
	}

	if shouldAuditGrant(action) {
		s.auditGranted(ctx, actor, orgID, object, action)
	}
	return nil
}

func (s *ServiceImpl) resolveActor(ctx context.Context, actor string, orgID string) (string, string, error) {
	if actor == "system" {
		return actor, roleSystem, nil
	}
	if strings.HasPrefix(actor, "user:") {
		userID, err := snowflake.ParseString(strings.TrimPrefix(actor, "user:"))
		if err != nil || userID == 0 {
			return "", "", ErrInvalidActor
		}
		parsedOrgID, err := snowflake.ParseString(orgID)
		if err != nil || parsedOrgID == 0 {
			return "", "", ErrInvalidOrganization
		}
		role, err := s.roleForUser(ctx, parsedOrgID, userID)
		if err != nil {
			return "", "", err
		}
		return actor, fmt.Sprintf("role:%s", strings.ToLower(role)), nil
	}
	return "", "", ErrInvalidActor
}

// roleForUser reads the role straight from the users table so a role change
// takes effect on the next request without touching stored policies.
func (s *ServiceImpl) roleForUser(ctx context.Context, orgID snowflake.ID, userID snowflake.ID) (string, error) {
	var row struct {
		Role string `gorm:"column:role"`
	}
	if err := s.db.WithContext(ctx).Raw(
		`SELECT role
		 FROM users
		 WHERE org_id = ? AND id = ? AND is_active = ?
		 LIMIT 1`,
		orgID,
		userID,
		true,
	).Scan(&row).Error; err != nil {
		return "", err
	}

	role := strings.TrimSpace(row.Role)
	if role == "" {
		return "", ErrForbidden
	}
	return role, nil
}

// ensureGrouping keeps exactly one subject->role grouping per domain,
// replacing a stale one after a role change.
func (s *ServiceImpl) ensureGrouping(subject string, roleName string, domain string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject, "", domain)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 {
			continue
		}
		if rule[1] != roleName {
			params := make([]interface{}, 0, len(rule))
			for _, value := range rule {
				params = append(params, value)
			}
			_, _ = s.enforcer.RemoveGroupingPolicy(params...)
		}
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName, domain)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName, domain)
	return err
}

func (s *ServiceImpl) auditDenied(ctx context.Context, actor string, orgID string, object string, action string) {
	if s.audit == nil {
		return
	}
	s.audit.Record(ctx, "authorization.denied", "authorization", object, map[string]any{
		"object": object,
		"action": action,
		"actor":  actor,
		"org_id": orgID,
	})
}

func (s *ServiceImpl) auditGranted(ctx context.Context, actor string, orgID string, object string, action string) {
	if s.audit == nil {
		return
	}
	s.audit.Record(ctx, "authorization.granted", "authorization", object, map[string]any{
		"object": object,
		"action": action,
		"actor":  actor,
		"org_id": orgID,
	})
}

// shouldAuditGrant marks the destructive grants worth a positive audit trail.
func shouldAuditGrant(action string) bool {
	switch action {
	case ActionInvoiceVoid, ActionBillVoid, ActionPaymentVoid,
		ActionVendorPaymentVoid, ActionExpenseVoid, ActionJournalEntryVoid,
		ActionOrganizationUpdate:
		return true
	default:
		return false
	}
}

type capability struct {
	object string
	action string
}

// readCapabilities is everything a viewer may do: read every resource and
// report except the audit trail.
func readCapabilities() []capability {
	return []capability{
		{ObjectOrganization, ActionOrganizationView},
		{ObjectAccount, ActionAccountView},
		{ObjectCustomer, ActionCustomerView},
		{ObjectVendor, ActionVendorView},
		{ObjectProduct, ActionProductView},
		{ObjectTaxRate, ActionTaxRateView},
		{ObjectInvoice, ActionInvoiceView},
		{ObjectBill, ActionBillView},
		{ObjectPayment, ActionPaymentView},
		{ObjectVendorPayment, ActionVendorPaymentView},
		{ObjectExpense, ActionExpenseView},
		{ObjectJournalEntry, ActionJournalEntryView},
		{ObjectReport, ActionReportView},
	}
}

// writeCapabilities is what an accountant adds on top of a viewer: master
// data CRUD and the full document lifecycle.
func writeCapabilities() []capability {
	return []capability{
		{ObjectAccount, ActionAccountCreate},
		{ObjectAccount, ActionAccountUpdate},
		{ObjectAccount, ActionAccountDelete},

		{ObjectCustomer, ActionCustomerCreate},
		{ObjectCustomer, ActionCustomerUpdate},
		{ObjectCustomer, ActionCustomerDelete},

		{ObjectVendor, ActionVendorCreate},
		{ObjectVendor, ActionVendorUpdate},
		{ObjectVendor, ActionVendorDelete},

		{ObjectProduct, ActionProductCreate},
		{ObjectProduct, ActionProductUpdate},
		{ObjectProduct, ActionProductDelete},

		{ObjectTaxRate, ActionTaxRateCreate},
		{ObjectTaxRate, ActionTaxRateUpdate},
		{ObjectTaxRate, ActionTaxRateDelete},

		{ObjectInvoice, ActionInvoiceCreate},
		{ObjectInvoice, ActionInvoiceUpdate},
		{ObjectInvoice, ActionInvoiceDelete},
		{ObjectInvoice, ActionInvoiceSend},
		{ObjectInvoice, ActionInvoiceVoid},

		{ObjectBill, ActionBillCreate},
		{ObjectBill, ActionBillUpdate},
		{ObjectBill, ActionBillDelete},
		{ObjectBill, ActionBillPay},
		{ObjectBill, ActionBillVoid},

		{ObjectPayment, ActionPaymentCreate},
		{ObjectPayment, ActionPaymentVoid},

		{ObjectVendorPayment, ActionVendorPaymentCreate},
		{ObjectVendorPayment, ActionVendorPaymentVoid},

		{ObjectExpense, ActionExpenseCreate},
		{ObjectExpense, ActionExpenseVoid},

		{ObjectJournalEntry, ActionJournalEntryCreate},
		{ObjectJournalEntry, ActionJournalEntryVoid},
	}
}

// ownerCapabilities is reserved for owners: organization settings and the
// audit trail.
func ownerCapabilities() []capability {
	return []capability{
		{ObjectOrganization, ActionOrganizationUpdate},
		{ObjectAuditLog, ActionAuditLogView},
	}
}

func grantsFor(role string) []capability {
	switch role {
	case roleViewer:
		return readCapabilities()
	case roleAccountant:
		return append(readCapabilities(), writeCapabilities()...)
	case roleOwner, roleSystem:
		grants := append(readCapabilities(), writeCapabilities()...)
		return append(grants, ownerCapabilities()...)
	}
	return nil
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	for _, role := range []string{roleViewer, roleAccountant, roleOwner, roleSystem} {
		for _, grant := range grantsFor(role) {
			if _, err := enforcer.AddPolicy(role, grant.object, grant.action); err != nil {
				return err
			}
		}
	}
	return nil
}
