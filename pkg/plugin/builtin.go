package plugin

import (
	"github.com/jshound/jshound/pkg/finding"
	"github.com/jshound/jshound/pkg/regexcache"
)

// builtinVersion is reported by all bundled providers.
const builtinVersion = "1.0.0"

// builtinProvider is a static rule set compiled at construction.
type builtinProvider struct {
	name  string
	rules []Rule
}

func (p *builtinProvider) Name() string    { return p.name }
func (p *builtinProvider) Version() string { return builtinVersion }

func (p *builtinProvider) Rules() []Rule {
	return append([]Rule(nil), p.rules...)
}

func mustRule(id, pattern string, severity finding.Severity, description string) Rule {
	return Rule{
		ID:          id,
		Pattern:     regexcache.MustGet(caseInsensitive(pattern)),
		Severity:    severity,
		Description: description,
	}
}

// Builtins returns every bundled rule provider.
func Builtins() []Provider {
	return []Provider{
		AWSKeys(),
		Firebase(),
		JWTTokens(),
		CustomRules(),
	}
}

// AWSKeys detects AWS credentials.
func AWSKeys() Provider {
	return &builtinProvider{
		name: "aws-keys",
		rules: []Rule{
			mustRule("aws-access-key-id",
				`AKIA[0-9A-Z]{16}`,
				finding.Critical, "AWS access key ID detected"),
			mustRule("aws-secret-access-key",
				`aws[_\-\s]?secret[_\-\s]?access[_\-\s]?key["\s]*[:=]["\s]*[A-Za-z0-9/+=]{40}`,
				finding.Critical, "AWS secret access key detected"),
			mustRule("aws-session-token",
				`aws[_\-\s]?session[_\-\s]?token["\s]*[:=]["\s]*[A-Za-z0-9/+=]{100,}`,
				finding.High, "AWS session token detected"),
			mustRule("aws-account-id",
				`aws[_\-\s]?account[_\-\s]?id["\s]*[:=]["\s]*\d{12}`,
				finding.Medium, "AWS account ID detected"),
		},
	}
}

// Firebase detects Firebase keys and configuration.
func Firebase() Provider {
	return &builtinProvider{
		name: "firebase",
		rules: []Rule{
			mustRule("firebase-api-key",
				`AIza[0-9A-Za-z_-]{35}`,
				finding.High, "Firebase API key detected"),
			mustRule("firebase-config-api-key",
				`firebase[_\-\s]?api[_\-\s]?key["\s]*[:=]["\s]*[A-Za-z0-9_-]{39}`,
				finding.High, "Firebase API key in configuration"),
			mustRule("firebase-database-url",
				`https://[a-z0-9-]+\.firebaseio\.com`,
				finding.Medium, "Firebase database URL detected"),
			mustRule("firebase-config-database-url",
				`firebase[_\-\s]?database[_\-\s]?url["\s]*[:=]["\s]*https://[a-z0-9-]+\.firebaseio\.com`,
				finding.Medium, "Firebase database URL in configuration"),
			mustRule("firebase-app-domain",
				`[a-z0-9-]+\.firebaseapp\.com`,
				finding.Low, "Firebase app domain detected"),
			mustRule("firebase-storage-bucket",
				`firebase[_\-\s]?storage[_\-\s]?bucket["\s]*[:=]["\s]*[a-z0-9-]+\.appspot\.com`,
				finding.Medium, "Firebase storage bucket detected"),
		},
	}
}

// JWTTokens detects JSON Web Tokens and bearer credentials.
func JWTTokens() Provider {
	return &builtinProvider{
		name: "jwt-tokens",
		rules: []Rule{
			mustRule("jwt-token",
				`eyJ[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}`,
				finding.High, "JWT token detected"),
			mustRule("jwt-bearer-token",
				`bearer\s+eyJ[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}`,
				finding.High, "Bearer JWT token detected"),
			mustRule("authorization-bearer",
				`authorization["\s]*[:=]["\s]*bearer\s+[A-Za-z0-9_-]+`,
				finding.High, "Authorization bearer token detected"),
		},
	}
}

// CustomRules detects generic credentials, internal endpoints, and
// well-known service token formats.
func CustomRules() Provider {
	return &builtinProvider{
		name: "custom-rules",
		rules: []Rule{
			mustRule("generic-api-key",
				`api[_\-\s]?key["\s]*[:=]["\s]*["'][A-Za-z0-9_-]{20,}["']`,
				finding.High, "Generic API key detected"),
			mustRule("api-secret",
				`api[_\-\s]?secret["\s]*[:=]["\s]*["'][A-Za-z0-9_-]{20,}["']`,
				finding.High, "API secret detected"),
			mustRule("oauth-token",
				`oauth[_\-\s]?token["\s]*[:=]["\s]*["'][A-Za-z0-9_-]{20,}["']`,
				finding.High, "OAuth token detected"),
			mustRule("access-token",
				`access[_\-\s]?token["\s]*[:=]["\s]*["'][A-Za-z0-9_.-]{20,}["']`,
				finding.High, "Access token detected"),
			mustRule("refresh-token",
				`refresh[_\-\s]?token["\s]*[:=]["\s]*["'][A-Za-z0-9_.-]{20,}["']`,
				finding.High, "Refresh token detected"),
			mustRule("hardcoded-password",
				`(?:password|passwd|pwd)["\s]*[:=]["\s]*["'][^"']{8,}["']`,
				finding.Critical, "Hardcoded password detected"),
			mustRule("db-password",
				`db[_\-\s]?password["\s]*[:=]["\s]*["'][^"']{4,}["']`,
				finding.Critical, "Database password detected"),
			mustRule("database-connection-string",
				`database[_\-\s]?url["\s]*[:=]["\s]*["'](?:mysql|postgres|mongodb|redis)://[^"']+["']`,
				finding.High, "Database connection string with credentials detected"),
			mustRule("private-key",
				`-----BEGIN (?:RSA |EC |DSA |OPENSSH )?PRIVATE KEY-----`,
				finding.Critical, "Private key detected"),
			mustRule("internal-url",
				`https?://(?:localhost|127\.0\.0\.1|192\.168\.[0-9]{1,3}\.[0-9]{1,3}|10\.[0-9]{1,3}\.[0-9]{1,3}\.[0-9]{1,3})(?::[0-9]{1,5})?(?:/[^\s"']*)?`,
				finding.Medium, "Internal or localhost URL detected"),
			mustRule("internal-domain",
				`https?://[a-z0-9-]+\.(?:local|internal|corp|dev|staging)(?:/[^\s"']*)?`,
				finding.Medium, "Internal domain URL detected"),
			mustRule("graphql-endpoint",
				`(?:https?://[^\s"']+)?/graphql`,
				finding.Low, "GraphQL endpoint detected"),
			mustRule("graphiql-interface",
				`(?:https?://[^\s"']+)?/graphiql`,
				finding.Medium, "GraphiQL interface endpoint detected"),
			mustRule("admin-endpoint",
				`(?:https?://[^\s"']+)?/admin(?:/[^\s"']*)?`,
				finding.Medium, "Admin endpoint detected"),
			mustRule("admin-api-endpoint",
				`(?:https?://[^\s"']+)?/api/v[0-9]+/admin`,
				finding.Medium, "Admin API endpoint detected"),
			mustRule("slack-token",
				`xox[baprs]-[0-9]{10,13}-[0-9]{10,13}-[A-Za-z0-9]{24,}`,
				finding.High, "Slack API token detected"),
			mustRule("github-pat",
				`ghp_[A-Za-z0-9]{36}`,
				finding.Critical, "GitHub personal access token detected"),
			mustRule("github-oauth-token",
				`gho_[A-Za-z0-9]{36}`,
				finding.Critical, "GitHub OAuth token detected"),
			mustRule("google-api-key",
				`google[_\-\s]?api[_\-\s]?key["\s]*[:=]["\s]*[A-Za-z0-9_-]{39}`,
				finding.High, "Google API key detected"),
			mustRule("stripe-live-secret-key",
				`sk_live_[0-9a-zA-Z]{24,}`,
				finding.Critical, "Stripe live secret key detected"),
			mustRule("stripe-live-publishable-key",
				`pk_live_[0-9a-zA-Z]{24,}`,
				finding.High, "Stripe live publishable key detected"),
			mustRule("twilio-api-key",
				`SK[a-z0-9]{32}`,
				finding.High, "Twilio API key detected"),
			mustRule("sendgrid-api-key",
				`SG\.[A-Za-z0-9_-]{22}\.[A-Za-z0-9_-]{43}`,
				finding.High, "SendGrid API key detected"),
			mustRule("mailchimp-api-key",
				`[a-f0-9]{32}-us[0-9]{1,2}`,
				finding.High, "MailChimp API key detected"),
		},
	}
}
