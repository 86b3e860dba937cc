/*
Package resilience provides a circuit breaker that guards tool launches.

# Overview

A tool whose executable is missing or misconfigured fails every launch. The
breaker counts consecutive launch failures per tool and, once the threshold is
reached, rejects further launches until a cooldown has passed. The first call
after the cooldown is a trial: success closes the circuit, failure reopens it.

# Usage

	launches := resilience.NewGroup(resilience.Settings{
		Failures: 3,
		Cooldown: 30 * time.Second,
	})

	err := launches.Get(tool.DisplayName).Execute(func() error {
		return start(tool)
	})

# States

	Closed --[failures]-> Open --[cooldown]-> Half-Open --[success]-> Closed
	                                              |
	                                          [failure]
	                                              v
	                                            Open
*/
package resilience
