package common

import (
	"strings"

	"github.com/Darkosxl/immobiliare-agent/internal/booking"
	"github.com/Darkosxl/immobiliare-agent/internal/server"
)

// ArgSession is the optional tool argument naming the telephony session.
const ArgSession = "session"

// SessionFromArgs returns the session name passed with a tool call, or "".
func SessionFromArgs(args map[string]interface{}) string {
	session, _ := args[ArgSession].(string)
	return strings.TrimSpace(session)
}

// CallerFromArgs resolves the caller of a tool call from its session argument.
// Calls without a session get the unknown caller in the server's locale.
func CallerFromArgs(sc *server.ServerContext, args map[string]interface{}) booking.CallerContext {
	return sc.Caller(SessionFromArgs(args))
}
