// Package schedule computes when the next reminder is due.
//
// A Scheduler holds the absolute next-fire deadline and recomputes it after
// every fire, manual resume, and configuration reload. It never decrements a
// deadline, and a reload always restarts the countdown rather than carrying
// over elapsed time from the previous interval.
package schedule
