/*
Package browser launches real Chromium instances through go-rod.

# Overview

Each fetch gets its own browser process: launched with sandboxing off,
infobars hidden, certificate errors ignored and a user agent from the
configured pool, then given one tab patched by go-rod/stealth so the usual
automation fingerprints (navigator.webdriver, empty plugin list, headless
user agent) are hidden.

# Navigation

Page.Navigate subscribes to Network.responseReceived before navigating and
keeps the first main-frame document response. Its body is fetched with
Network.getResponseBody, so a server answering with raw XML is recognised
before the page renders it. The call returns at DOMContentLoaded; later
waits are the caller's business (WaitStable).

# Teardown

Browser.Close closes the CDP connection, kills the process and removes the
temporary profile directory. It is safe to call on a browser whose
process already died.

# Usage

	l := browser.NewLauncher(logger)
	b, err := l.Launch(ctx, feed.LaunchOptions{Headless: true, UserAgent: ua})
	if err != nil {
		return err
	}
	defer b.Close()
	page, err := b.NewPage(ctx)
*/
package browser
