// Package errors implements the three-class error model used across kinetic-simulator.
//
// Errors are Transient (retry may help: dropped connections, timeouts), Invalid (the
// input is wrong: a malformed control message, an unparseable bound) or Fatal (the
// process cannot continue: a broken configuration file).
//
// Wrap adds component context in the form "component.method: action failed: <err>":
//
//	if err := json.Unmarshal(raw, &msg); err != nil {
//	    return errors.WrapInvalid(err, "template", "ParseControl", "decode control message")
//	}
//
// Callers pick a strategy with Classify or the Is helpers:
//
//	switch errors.Classify(err) {
//	case errors.ErrorTransient:
//	    // retry or drop the payload
//	case errors.ErrorInvalid:
//	    // tell the client
//	case errors.ErrorFatal:
//	    // stop
//	}
package errors
