// Package apitests contains the Felina API contract tests themselves and their supporting API.
//
// The tests form one linear scenario: each step depends on the server state and session that
// the earlier steps left behind, so the scenario stops at the first failure. Test sequencing,
// failure recording, and debug capture are in the lower-level framework package; expected
// responses are built by the fixtures package.
package apitests
