// Package logs reads the console's own log file for `shortsadmin logs`.
//
// Last returns the final lines with bounded memory, ReadFrom continues from a
// byte offset, and Follow polls for appended lines until its context ends. A
// file that shrinks below the saved offset is read again from the start.
package logs
