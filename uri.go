package main

import (
	"fmt"
	"strings"
)

// maxRemoteInfo caps the remote-party display string taken from stack
// callbacks.
const maxRemoteInfo = 255

// identityURI builds the account identity URI, quoting the display name
// when one is present.
func identityURI(displayName, username, domain string) string {
	if displayName != "" {
		return fmt.Sprintf("%q <sip:%s@%s>", displayName, username, domain)
	}
	return fmt.Sprintf("sip:%s@%s", username, domain)
}

// uriDomain extracts the host part of a SIP URI such as
// `"Alice" <sip:alice@corp.example.com>` or `sip:alice@corp.example.com`.
// It returns "" when the URI carries no user@host form.
func uriDomain(uri string) string {
	at := strings.IndexByte(uri, '@')
	if at < 0 {
		return ""
	}
	rest := uri[at+1:]
	if end := strings.IndexByte(rest, '>'); end >= 0 {
		rest = rest[:end]
	}
	if end := strings.IndexByte(rest, ';'); end >= 0 {
		rest = rest[:end]
	}
	return rest
}

// truncate limits s to max bytes.
func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}
