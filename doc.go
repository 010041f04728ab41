/*
Package ddns keeps a Cloudflare A record pointed at the caller's current
public IP address.

Usage will always start with [New],
which returns the [*Updater].
New requires the fully qualified name of the record to manage and a [Provider] implementation for a DNS provider.
Additional configuration options are listed in the docs for New.
*/
package ddns
