// Package browser provides the browser session a plan runs in.
//
// A Driver starts a real browser and opens a single page, returned as an
// Engine. The Manager wraps driver launches in Sessions that are released
// exactly once, and keeps counters so callers can check that no session
// outlives its run.
//
// # Session Lifecycle
//
//  1. Acquire: Manager.Acquire launches a visible browser with one page
//  2. Use: Goto, Click, Type and InnerText operate on that page
//  3. Pause: WaitForClose blocks until the user closes the window
//  4. Release: Session.Release closes the browser and stops the driver
//
// Two drivers are available: Playwright (the default) and chromedp.
//
// # Example Usage
//
//	mgr := browser.NewManager(browser.NewPlaywrightDriver(), browser.DefaultOptions(), logger)
//	sess, err := mgr.Acquire(ctx)
//	if err != nil {
//	    return err
//	}
//	defer sess.Release()
//
//	if err := sess.Goto(ctx, "https://example.com"); err != nil {
//	    return err
//	}
//	heading, err := sess.InnerText(ctx, "h1")
package browser
