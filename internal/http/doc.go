// Package http exposes the tab-session core to the UI layer over REST. The
// mutation endpoints funnel through the workspace manager's scheduler, so a
// response only goes out once the mutation and its side effects have fully
// applied.
package http
