/*
Package assert provides panicking invariant checks for states that should be impossible if the surrounding code is correct.

Checks are compiled out entirely with the 'noassert' build tag.
[Disable] and [Enable] exist for tests, and flip a process-wide switch.
*/
package assert
