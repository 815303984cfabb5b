package template

import "github.com/glamyouup/mailflow/internal/domain"

// Builtin system templates. They back every notification type out of the box;
// an active row in notification_templates overrides the builtin for its type.
var builtinTemplates = map[string]domain.Template{
	domain.TypeWelcome: {
		Type:            domain.TypeWelcome,
		Name:            "welcome_email",
		SubjectTemplate: "Welcome to {{.platform_name}}, {{.shop_name}}!",
		BodyTemplate: `<h2>Welcome aboard, {{.shop_name}}!</h2>
<p>We're thrilled to have you join the {{.platform_name}} family! Your shop
<strong>{{.merchant_domain}}</strong> is now connected and ready to transform your
product imagery.</p>
<p>We'll automatically sync your product catalog to get you started quickly.</p>
<p>If you have any questions, our support team is here to help:
<a href="{{.support_url}}">{{.support_url}}</a></p>
<p><strong>The {{.platform_name}} Team</strong></p>`,
		RequiredVariables: []string{"shop_name", "merchant_domain"},
		OptionalVariables: []string{"merchant_id"},
		IsActive:          true,
	},
	domain.TypeRegistrationFinish: {
		Type:            domain.TypeRegistrationFinish,
		Name:            "registration_finish_email",
		SubjectTemplate: "Product Import Complete - {{.product_count}} Products Ready",
		BodyTemplate: `<h2>Product Import Successful!</h2>
<p>Great news! We've successfully imported <strong>{{.product_count}}</strong>
products to {{.platform_name}}.</p>
<p>Your products are now ready for background removal, image enhancement, and
batch processing.</p>`,
		RequiredVariables: []string{"product_count"},
		IsActive:          true,
	},
	domain.TypeBillingExpired: {
		Type:            domain.TypeBillingExpired,
		Name:            "billing_expired_email",
		SubjectTemplate: "Subscription Expired - Action Required",
		BodyTemplate: `<h2>Your Subscription Has Expired</h2>
<p><strong>Important:</strong> Your {{.plan_name}} subscription has expired.
Your account features are currently limited.</p>
<p>To continue enjoying all {{.platform_name}} features, please renew your
subscription: <a href="{{.renewal_link}}">Renew Subscription</a></p>
<p>Your existing images and product catalog remain accessible.</p>`,
		RequiredVariables: []string{"plan_name", "renewal_link"},
		IsActive:          true,
	},
	domain.TypeBillingLowCredits: {
		Type:            domain.TypeBillingLowCredits,
		Name:            "billing_low_credits_email",
		SubjectTemplate: "Low credit balance warning",
		BodyTemplate: `<h2>Your Credit Balance Is Running Low</h2>
<p>Your current balance is <strong>{{.current_balance}}</strong> credits. At your
current usage rate it will be depleted in about {{.days_remaining}} days
(around {{.expected_depletion_date}}).</p>
<p>Top up now to avoid any interruption:
<a href="{{.billing_link}}">Manage Billing</a></p>`,
		RequiredVariables: []string{"current_balance", "days_remaining", "expected_depletion_date", "billing_link"},
		IsActive:          true,
	},
	domain.TypeBillingZeroBalance: {
		Type:            domain.TypeBillingZeroBalance,
		Name:            "billing_zero_balance_email",
		SubjectTemplate: "Zero balance - Features will be deactivated",
		BodyTemplate: `<h2>Your Balance Has Reached Zero</h2>
<p><strong>Urgent:</strong> Your credit balance is empty. {{.platform_name}}
features will be deactivated at {{.deactivation_time}} unless you top up.</p>
<p><a href="{{.billing_link}}">Add Credits Now</a></p>`,
		RequiredVariables: []string{"deactivation_time", "billing_link"},
		IsActive:          true,
	},
	domain.TypeAnnouncement: {
		Type:            domain.TypeAnnouncement,
		Name:            "announcement_email",
		SubjectTemplate: "{{.title}}",
		BodyTemplate: `<h2>{{.title}}</h2>
<div>{{.message}}</div>
<p><strong>The {{.platform_name}} Team</strong></p>`,
		RequiredVariables: []string{"title", "message"},
		IsActive:          true,
	},
}

// Builtin returns the system template for the given type, if one exists.
func Builtin(templateType string) (*domain.Template, bool) {
	tmpl, ok := builtinTemplates[templateType]
	if !ok {
		return nil, false
	}
	return &tmpl, true
}
