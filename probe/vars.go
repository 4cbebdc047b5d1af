// SPDX-License-Identifier: GPL-3.0-or-later

package probe

// KnownVar describes one status field or derived metric the probe
// understands: its value type, unit of measure and counter kind. The table
// supplies the implicit defaults for policies that do not declare them.
type KnownVar struct {
	Name        string
	Text        bool // value compared as text, not a number
	UOM         string
	Counter     bool
	Description string
}

// VarTable is the known-variables table. Built once at startup and passed
// around; never mutated afterwards.
type VarTable map[string]KnownVar

func (t VarTable) Lookup(name string) (KnownVar, bool) {
	v, ok := t[name]
	return v, ok
}

// DefaultVars returns the built-in table covering the INFO fields and
// derived metrics of interest.
func DefaultVars() VarTable {
	vars := []KnownVar{
		{Name: "uptime_in_seconds", UOM: "s", Description: "seconds since server start"},
		{Name: "connected_clients", Description: "number of client connections"},
		{Name: "blocked_clients", Description: "clients blocked on a blocking call"},
		{Name: "rejected_connections", Counter: true, Description: "connections rejected over maxclients"},
		{Name: "used_memory", UOM: "B", Description: "bytes allocated by the allocator"},
		{Name: "used_memory_rss", UOM: "B", Description: "resident set size"},
		{Name: "used_memory_peak", UOM: "B", Description: "peak allocator usage"},
		{Name: "used_memory_lua", UOM: "B", Description: "bytes used by the lua engine"},
		{Name: "mem_fragmentation_ratio", Description: "rss to allocated memory ratio"},
		{Name: "total_connections_received", Counter: true, Description: "connections accepted since start"},
		{Name: "total_commands_processed", Counter: true, Description: "commands processed since start"},
		{Name: "instantaneous_ops_per_sec", Description: "commands processed per second"},
		{Name: "expired_keys", Counter: true, Description: "key expiration events"},
		{Name: "evicted_keys", Counter: true, Description: "keys evicted under maxmemory"},
		{Name: "keyspace_hits", Counter: true, Description: "successful key lookups"},
		{Name: "keyspace_misses", Counter: true, Description: "failed key lookups"},
		{Name: "connected_slaves", Description: "number of connected replicas"},
		{Name: "master_link_status", Text: true, Description: "replication link state on a replica"},
		{Name: "role", Text: true, Description: "replication role"},
		{Name: "rdb_changes_since_last_save", Description: "writes since the last dump"},
		{Name: "rdb_bgsave_in_progress", Description: "background save running"},
		{Name: "aof_rewrite_in_progress", Description: "aof rewrite running"},
		{Name: "latest_fork_usec", UOM: "us", Description: "duration of the latest fork"},
		{Name: "pubsub_channels", Description: "active pub/sub channels"},
		{Name: "pubsub_patterns", Description: "active pub/sub patterns"},
		{Name: "loading", Description: "dataset load in progress"},

		// derived by the probe itself
		{Name: "databases", Description: "databases with at least one key"},
		{Name: "total_keys", Description: "keys across all databases"},
		{Name: "total_expires", Description: "keys with an expiration across all databases"},
		{Name: "hitrate", UOM: "%", Description: "keyspace lookup hit rate"},
		{Name: "memory_utilization", UOM: "%", Description: "used memory as a share of total memory"},
		{Name: "response_time", UOM: "s", Description: "time to ping the server"},
	}

	t := make(VarTable, len(vars))
	for _, v := range vars {
		t[v.Name] = v
	}
	return t
}
