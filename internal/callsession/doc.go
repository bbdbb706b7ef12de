// Package callsession tracks live calls and coordinates their teardown.
//
// A call must not be hung up while the agent is still speaking. Speech is
// tracked per call with BeginSpeech or speech events; End waits for the
// playout to finish, bounded by a maximum wait, and then runs the hangup side
// effect exactly once.
package callsession
