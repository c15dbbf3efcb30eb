// Package defaults provides canonical default values for the entire codebase.
// This file contains CWE reference data - the SINGLE SOURCE OF TRUTH.
//
// Usage:
//
//	code := defaults.CWECategoryMapping["aws-access-key"]  // "CWE-798"
//	name := defaults.CWECatalog[code].Name                 // "Use of Hard-coded Credentials"
//	url := defaults.CWECatalog[code].URL                   // "https://cwe.mitre.org/..."
package defaults

// CWECategory represents a CWE weakness with all metadata.
type CWECategory struct {
	Code        string // e.g., "CWE-798"
	Name        string // e.g., "Use of Hard-coded Credentials"
	FullName    string // e.g., "CWE-798 - Use of Hard-coded Credentials"
	URL         string // Official MITRE URL
	Description string // Brief description
}

// CWECatalog contains the weaknesses jshound findings map to, indexed by code.
// This is the SINGLE SOURCE OF TRUTH for CWE data across all writers/reporters.
var CWECatalog = map[string]CWECategory{
	"CWE-798": {
		Code:        "CWE-798",
		Name:        "Use of Hard-coded Credentials",
		FullName:    "CWE-798 - Use of Hard-coded Credentials",
		URL:         "https://cwe.mitre.org/data/definitions/798.html",
		Description: "The product contains hard-coded credentials, such as a password or cryptographic key.",
	},
	"CWE-312": {
		Code:        "CWE-312",
		Name:        "Cleartext Storage of Sensitive Information",
		FullName:    "CWE-312 - Cleartext Storage of Sensitive Information",
		URL:         "https://cwe.mitre.org/data/definitions/312.html",
		Description: "The product stores sensitive information in cleartext within a resource accessible to another control sphere.",
	},
	"CWE-321": {
		Code:        "CWE-321",
		Name:        "Use of Hard-coded Cryptographic Key",
		FullName:    "CWE-321 - Use of Hard-coded Cryptographic Key",
		URL:         "https://cwe.mitre.org/data/definitions/321.html",
		Description: "The use of a hard-coded cryptographic key significantly increases the possibility that encrypted data may be recovered.",
	},
	"CWE-522": {
		Code:        "CWE-522",
		Name:        "Insufficiently Protected Credentials",
		FullName:    "CWE-522 - Insufficiently Protected Credentials",
		URL:         "https://cwe.mitre.org/data/definitions/522.html",
		Description: "The product transmits or stores authentication credentials using an insecure method.",
	},
	"CWE-532": {
		Code:        "CWE-532",
		Name:        "Insertion of Sensitive Information into Log File",
		FullName:    "CWE-532 - Insertion of Sensitive Information into Log File",
		URL:         "https://cwe.mitre.org/data/definitions/532.html",
		Description: "Information written to log files can be of a sensitive nature and give valuable guidance to an attacker.",
	},
	"CWE-200": {
		Code:        "CWE-200",
		Name:        "Exposure of Sensitive Information to an Unauthorized Actor",
		FullName:    "CWE-200 - Exposure of Sensitive Information to an Unauthorized Actor",
		URL:         "https://cwe.mitre.org/data/definitions/200.html",
		Description: "The product exposes sensitive information to an actor that is not explicitly authorized to have access to it.",
	},
}

// CWECategoryMapping maps rule categories to CWE codes.
// Rule IDs use their category prefix to resolve a weakness for reporting.
var CWECategoryMapping = map[string]string{
	"aws":        "CWE-798",
	"gcp":        "CWE-798",
	"github":     "CWE-798",
	"slack":      "CWE-798",
	"stripe":     "CWE-798",
	"twilio":     "CWE-798",
	"api-key":    "CWE-798",
	"private-key": "CWE-321",
	"jwt":        "CWE-522",
	"password":   "CWE-522",
	"basic-auth": "CWE-522",
	"url-creds":  "CWE-522",
	"generic":    "CWE-200",
}

// CWEForCategory returns the catalog entry for a rule category, falling back
// to CWE-200 when the category has no explicit mapping.
func CWEForCategory(category string) CWECategory {
	if code, ok := CWECategoryMapping[category]; ok {
		return CWECatalog[code]
	}
	return CWECatalog["CWE-200"]
}
