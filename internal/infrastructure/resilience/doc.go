/*
Package resilience guards the browser launch path.

# Launch breaker

A browser launch that fails repeatedly (missing binary, exhausted memory,
sandbox errors) fails every request the same way. The Breaker counts
consecutive launch failures and, once the threshold is reached, rejects
launches with ErrCircuitOpen for a cooldown instead of spawning another
doomed process. After the cooldown one probe launch is let through.

	Closed --[failures]-> Open --[cooldown]-> Half-Open --[success]-> Closed
	                                              |
	                                          [failure]
	                                              v
	                                            Open

# Admission

Admission caps concurrent browser sessions with a weighted semaphore.
A request that cannot get a slot within the configured wait is rejected
with ErrAdmissionTimeout, which the HTTP layer maps to 503.

	breaker := resilience.New("browser-launch", resilience.Settings{
		Failures: 5,
		Cooldown: 30 * time.Second,
	})
	err := breaker.Do(func() error {
		return launch()
	})
*/
package resilience
