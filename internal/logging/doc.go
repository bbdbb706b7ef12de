// Package logging keeps log attributes consistent across the agent.
//
// All logging goes through log/slog. The helpers here name the common
// attributes and make sure caller phone numbers never reach the log in clear:
//
//	logger := logging.WithOperation(slog.Default(), "booking.schedule")
//	logger.Error("calendar insert failed",
//	    logging.CallerHash(caller.OriginatorRef),
//	    logging.StatusCode(503),
//	    logging.Err(err))
package logging
