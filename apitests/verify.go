package apitests

import (
	"encoding/json"
	"fmt"

	"github.com/felina/server-contract-tests/client"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

const maxBodyInMessage = 2000

// MalformedResponseError means the response body was not JSON at all. This is reported
// separately from a mismatch, since it usually means the server crashed or returned an
// error page.
type MalformedResponseError struct {
	Body string
	Err  error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("response is not valid JSON (%s): %s", e.Err, truncate(e.Body))
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

// AssertionMismatchError means the response was JSON but not the expected JSON.
type AssertionMismatchError struct {
	Message  string
	Expected string
	Actual   string
}

func (e *AssertionMismatchError) Error() string {
	return fmt.Sprintf("%s\nexpected: %s\nactual: %s", e.Message, e.Expected, truncate(e.Actual))
}

func truncate(s string) string {
	if len(s) > maxBodyInMessage {
		return s[:maxBodyInMessage] + "..."
	}
	return s
}

// ParseBody decodes a response body as JSON.
func ParseBody(resp client.Response) (ldvalue.Value, error) {
	var v ldvalue.Value
	if err := json.Unmarshal(resp.Body, &v); err != nil {
		return ldvalue.Null(), &MalformedResponseError{Body: string(resp.Body), Err: err}
	}
	return v, nil
}

// VerifyBoolean checks the "res" flag that every response carries. The message describes
// what a wrong flag means; the response body is added to it.
func VerifyBoolean(resp client.Response, expected bool, message string) error {
	v, err := ParseBody(resp)
	if err != nil {
		return err
	}
	res := v.GetByKey("res")
	if res.Type() != ldvalue.BoolType || res.BoolValue() != expected {
		return &AssertionMismatchError{
			Message:  message,
			Expected: fmt.Sprintf(`{"res":%t,...}`, expected),
			Actual:   v.JSONString(),
		}
	}
	return nil
}

// VerifyStructural checks that the whole response body equals the fixture. Object keys may
// come in any order; array elements may not.
func VerifyStructural(resp client.Response, fixture ldvalue.Value) error {
	v, err := ParseBody(resp)
	if err != nil {
		return err
	}
	if !v.Equal(fixture) {
		return &AssertionMismatchError{
			Message:  "response did not match the expected body",
			Expected: fixture.JSONString(),
			Actual:   v.JSONString(),
		}
	}
	return nil
}

// VerifyStatus checks the HTTP status of a response.
func VerifyStatus(resp client.Response, expected int) error {
	if resp.Status != expected {
		return &AssertionMismatchError{
			Message:  "unexpected HTTP status",
			Expected: fmt.Sprint(expected),
			Actual:   fmt.Sprint(resp.Status),
		}
	}
	return nil
}
