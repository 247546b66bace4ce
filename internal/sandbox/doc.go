/*
Package sandbox validates and executes untrusted user-authored script against
the preview page.

Every execution is gated by a static validation pass; validation is never
cached or skipped, even for identical code run twice. Validation and
execution stay strictly separate so the policy can be hardened independently
of the mechanism, and so a stricter isolation primitive can replace the goja
runtime later without changing the validation contract.

Validated code runs in a fresh goja VM inside a function scope that receives
exactly five bindings (element, document, window, console, experimentName)
and nothing else. The bindings are host-built proxies over the internal/dom
page; the executing function has no closure access to validator, executor,
or preview-manager state. Dangerous Node-style globals are removed and
timers are no-ops, following the same hardening the runtime applies for
browser script proxying. Execution failures of any kind are logged and
surface only as a false return; nothing escapes Execute.
*/
package sandbox
