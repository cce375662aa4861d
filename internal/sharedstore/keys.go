package sharedstore

import (
	"fmt"
	"strconv"
	"strings"
)

// Key layout. Keys under usagePrefix are written only by the monitoring
// helper; the interactive process treats them as read-only.
const (
	usagePrefix    = "usage."
	schedulePrefix = "schedule."
	firesPrefix    = "fires."

	// KeyActivatedAt holds the unix time (float seconds) of the last
	// monitoring activation.
	KeyActivatedAt = "monitor.activated_at"
	// KeyActivationID identifies the current monitoring session.
	KeyActivationID = "monitor.activation_id"
	// KeyScheduleCount is the number of published watchpoints.
	KeyScheduleCount = "schedule.count"
	// KeyFireSeq is the sequence number of the newest relayed fire.
	KeyFireSeq = "fires.seq"
	// KeySignalsFired counts signals raised by the helper.
	KeySignalsFired = "diag.signals_fired"
	// KeyUnknownFires counts fires for watchpoints missing from the schedule.
	KeyUnknownFires = "diag.unknown_fires"
)

// Counter field names.
const (
	FieldToday   = "today"
	FieldTotal   = "total"
	FieldDay     = "day"
	FieldUpdated = "updated"
	FieldSeq     = "seq"
)

// UsageKey returns the key of one counter field for an entity.
func UsageKey(entityID, field string) string {
	return usagePrefix + entityID + "." + field
}

// IsUsageKey reports whether a key belongs to the helper-owned counters.
func IsUsageKey(key string) bool {
	return strings.HasPrefix(key, usagePrefix)
}

// UsagePrefix returns the prefix of all helper-owned counter keys.
func UsagePrefix() string {
	return usagePrefix
}

// EntityFromUsageKey extracts the entity ID from a counter key.
func EntityFromUsageKey(key string) (string, bool) {
	rest, ok := strings.CutPrefix(key, usagePrefix)
	if !ok {
		return "", false
	}
	i := strings.LastIndexByte(rest, '.')
	if i <= 0 {
		return "", false
	}
	return rest[:i], true
}

// ScheduleEntityKey is the key holding the entity of a watchpoint.
func ScheduleEntityKey(watchpointID string) string {
	return schedulePrefix + watchpointID + ".entity"
}

// ScheduleMinuteKey is the key holding the minute threshold of a watchpoint.
func ScheduleMinuteKey(watchpointID string) string {
	return schedulePrefix + watchpointID + ".minute"
}

// SchedulePrefix returns the prefix of all schedule keys.
func SchedulePrefix() string {
	return schedulePrefix + "wp_"
}

// FireKey returns the key of one field of a relayed fire.
func FireKey(seq int64, field string) string {
	return firesPrefix + strconv.FormatInt(seq, 10) + "." + field
}

// FireSeqFromKey extracts the sequence number from a fire key.
func FireSeqFromKey(key string) (int64, error) {
	rest, ok := strings.CutPrefix(key, firesPrefix)
	if !ok {
		return 0, fmt.Errorf("not a fire key: %s", key)
	}
	seq, _, _ := strings.Cut(rest, ".")
	return strconv.ParseInt(seq, 10, 64)
}

// FirePrefix returns the prefix of all fire keys.
func FirePrefix() string {
	return firesPrefix
}
