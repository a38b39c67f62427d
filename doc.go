/*
Package marla drives a long-lived R process on behalf of the operation
cache. This package assumes that you have the R binary in your PATH or
pass its location to Connection.

A Conn owns exactly one R process. Commands are written to R's stdin
one statement at a time, each followed by a sentinel print on stdout
and on stderr; the Conn reads the process's combined output until both
sentinels come back, which delimits the output of that one command. An
output line starting with "Error" means R rejected the statement: the
Conn still drains to the sentinels so the next call starts in sync, and
then returns an *EngineError carrying R's text.

Only one command is in flight at a time. Concurrent callers queue on
the Conn rather than interleave their writes and reads.

Any failure to read or write the pipes is treated as the death of the
process. The Conn tears the process down and returns ErrDead; callers
restart the Conn rather than retry on the old process.

Conn can also keep a transcript of the commands it runs (see
RecordMode), which the operation cache uses to show users the R code
behind each result.
*/
package marla
