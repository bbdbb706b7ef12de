// Package calendar is the gateway between the booking engine and a remote
// calendar.
//
// Gateway is the narrow interface the engine consumes: a free/busy query and
// event insert, list and delete. Client implements it against the Google
// Calendar API with service-account credentials. The other implementations
// are decorators or doubles chosen when the service is wired together:
//
//   - RetryingGateway retries idempotent calls with exponential backoff
//   - InstrumentedGateway records metrics and spans
//   - SelfCleaningGateway deletes every event right after creating it, for
//     smoke runs against a real calendar
//   - MemoryGateway keeps events in memory, for dry runs and tests
//
// Example usage:
//
//	creds, err := calendar.LoadCredentialsJSON(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
//	if err != nil {
//	    return err
//	}
//	client, err := calendar.NewClient(ctx, creds)
//	if err != nil {
//	    return err
//	}
//	gw := calendar.NewInstrumentedGateway(calendar.NewRetryingGateway(client, 3, metrics), metrics)
package calendar
