// Package policy turns scan results into a CI/CD verdict. A policy is
// a YAML quality gate: it names the conditions under which a scan
// fails the build, independent of what the reports contain.
//
// Gates can be expressed over:
//   - finding counts, in total or per severity
//   - specific rule IDs whose presence alone fails the gate
//   - the fraction of assets that failed to download
//
// # Policy File Format
//
//	version: "1.0"
//	name: "production-gate"
//
//	fail_on:
//	  findings:
//	    total: 5           # more than 5 findings overall
//	    critical: 0        # any critical finding
//	    high: 3            # more than 3 high severity
//	  rules:
//	    - aws-access-key-id   # any AWS access key exposure
//	    - rsa-private-key     # any private key exposure
//	  download_failure_rate_above: 25.0  # over 25% of assets unreachable
//
//	ignore:
//	  rules:
//	    - generic-api-key  # mute a noisy rule
//	  plugins:
//	    - entropy          # mute one plugin entirely
//
// # Usage
//
//	gate, err := policy.LoadPolicy("policy.yaml")
//	if err != nil {
//	    return err
//	}
//
//	result := gate.Evaluate(findings, policy.ScanStats{
//	    Assets:       34,
//	    FailedAssets: 2,
//	})
//	if !result.Pass {
//	    fmt.Printf("policy failed: %v\n", result.Failures)
//	    os.Exit(result.ExitCode)
//	}
//
// A loaded Policy is immutable and may be evaluated concurrently.
package policy
