// Package messaging defines standard subject names for the AVL message bus.
package messaging

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Subject constants for the AVL message bus.
// Follow the pattern: {domain}.{action}.{resource}
const (
	// SubjectAVLStaged announces a newly staged raw payload.
	// Append .{subscriptionId} for the concrete subject.
	SubjectAVLStaged = "avl.payloads.staged"
)

// Durable consumer and stream names for the processing pipeline.
const (
	// StreamAVLStaged captures staged payload notifications.
	StreamAVLStaged = "AVL_STAGED"

	// ConsumerAVLProcessor is the durable work-queue consumer shared by
	// processor instances (each notification processed once).
	ConsumerAVLProcessor = "avl-processor"
)

// StagedSubject returns the notification subject for one subscription.
// Example: avl.payloads.staged.byfleet-004
func StagedSubject(subscriptionID string) string {
	// Subject tokens must not contain separators.
	id := strings.ReplaceAll(subscriptionID, ".", "_")
	return SubjectAVLStaged + "." + id
}

// StagedObjectNotification references one raw payload staged in object
// storage. The subscription ID is recoverable from the key prefix.
type StagedObjectNotification struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

// Encode serializes the notification for transport.
func (n StagedObjectNotification) Encode() ([]byte, error) {
	data, err := json.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("marshal staged object notification: %w", err)
	}
	return data, nil
}

// DecodeStagedObjectNotifications parses a notification payload that may
// carry either a single notification or a batch. Producers publish single
// notifications; batching infrastructure may coalesce them.
func DecodeStagedObjectNotifications(data []byte) ([]StagedObjectNotification, error) {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var batch []StagedObjectNotification
		if err := json.Unmarshal(data, &batch); err != nil {
			return nil, fmt.Errorf("unmarshal staged object notification batch: %w", err)
		}
		for _, n := range batch {
			if n.Key == "" {
				return nil, fmt.Errorf("staged object notification missing key")
			}
		}
		return batch, nil
	}

	n, err := DecodeStagedObjectNotification(data)
	if err != nil {
		return nil, err
	}
	return []StagedObjectNotification{n}, nil
}

// DecodeStagedObjectNotification parses a notification payload.
func DecodeStagedObjectNotification(data []byte) (StagedObjectNotification, error) {
	var n StagedObjectNotification
	if err := json.Unmarshal(data, &n); err != nil {
		return n, fmt.Errorf("unmarshal staged object notification: %w", err)
	}
	if n.Key == "" {
		return n, fmt.Errorf("staged object notification missing key")
	}
	return n, nil
}
