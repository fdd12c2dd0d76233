package reminder

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// RedisStore keeps records as JSON values in Redis, laid out like the
// app's real-time database: one key per record plus per-patient indexes.
type RedisStore struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

var _ Repository = (*RedisStore)(nil)

// NewRedisStore creates a store using keys under prefix (e.g. "medivoice:").
func NewRedisStore(client *redis.Client, prefix string, logger *zap.Logger) *RedisStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisStore{
		client: client,
		prefix: prefix,
		logger: logger,
	}
}

func (s *RedisStore) assignmentKey(id string) string {
	return s.prefix + "assignments:" + id
}

func (s *RedisStore) activeAssignmentsKey() string {
	return s.prefix + "assignments:active"
}

func (s *RedisStore) patientAssignmentsKey(patientID string) string {
	return s.prefix + "patients:" + patientID + ":assignments"
}

func (s *RedisStore) reminderKey(id string) string {
	return s.prefix + "reminders:" + id
}

// scheduledKey indexes reminders whose status is scheduled, scored by time.
func (s *RedisStore) scheduledKey() string {
	return s.prefix + "reminders:scheduled"
}

func (s *RedisStore) patientRemindersKey(patientID string) string {
	return s.prefix + "patients:" + patientID + ":reminders"
}

func (s *RedisStore) profileKey(patientID string) string {
	return s.prefix + "profiles:" + patientID
}

// Close closes the Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// AppendAssignment stores an assignment and indexes it by patient.
func (s *RedisStore) AppendAssignment(ctx context.Context, a Assignment) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to marshal assignment: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.assignmentKey(a.ID), data, 0)
		pipe.SAdd(ctx, s.patientAssignmentsKey(a.PatientID), a.ID)
		if a.IsActive {
			pipe.SAdd(ctx, s.activeAssignmentsKey(), a.ID)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store assignment: %w", err)
	}
	return nil
}

// GetAssignment loads one assignment.
func (s *RedisStore) GetAssignment(ctx context.Context, id string) (*Assignment, error) {
	val, err := s.client.Get(ctx, s.assignmentKey(id)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, assignmentNotFound(id)
		}
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}

	var a Assignment
	if err := json.Unmarshal([]byte(val), &a); err != nil {
		return nil, fmt.Errorf("failed to unmarshal assignment: %w", err)
	}
	return &a, nil
}

// ListAssignments returns a patient's assignments, oldest first.
func (s *RedisStore) ListAssignments(ctx context.Context, patientID string) ([]Assignment, error) {
	ids, err := s.client.SMembers(ctx, s.patientAssignmentsKey(patientID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	return s.loadAssignments(ctx, ids)
}

// ActiveAssignments returns all active assignments, oldest first.
func (s *RedisStore) ActiveAssignments(ctx context.Context) ([]Assignment, error) {
	ids, err := s.client.SMembers(ctx, s.activeAssignmentsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list active assignments: %w", err)
	}
	return s.loadAssignments(ctx, ids)
}

func (s *RedisStore) loadAssignments(ctx context.Context, ids []string) ([]Assignment, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.assignmentKey(id)
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load assignments: %w", err)
	}

	assignments := make([]Assignment, 0, len(vals))
	for i, v := range vals {
		str, ok := v.(string)
		if !ok {
			s.logger.Warn("assignment index points at missing record", zap.String("assignment_id", ids[i]))
			continue
		}
		var a Assignment
		if err := json.Unmarshal([]byte(str), &a); err != nil {
			return nil, fmt.Errorf("failed to unmarshal assignment %s: %w", ids[i], err)
		}
		assignments = append(assignments, a)
	}

	sort.SliceStable(assignments, func(i, j int) bool {
		return assignments[i].CreatedAt.Before(assignments[j].CreatedAt)
	})
	return assignments, nil
}

// SetAssignmentActive flips the active flag and maintains the active index.
func (s *RedisStore) SetAssignmentActive(ctx context.Context, id string, active bool, at time.Time) error {
	a, err := s.GetAssignment(ctx, id)
	if err != nil {
		return err
	}
	a.IsActive = active
	a.UpdatedAt = at

	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to marshal assignment: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.assignmentKey(id), data, 0)
		if active {
			pipe.SAdd(ctx, s.activeAssignmentsKey(), id)
		} else {
			pipe.SRem(ctx, s.activeAssignmentsKey(), id)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to update assignment: %w", err)
	}
	return nil
}

// AppendReminders stores reminders and their indexes in one MULTI block.
func (s *RedisStore) AppendReminders(ctx context.Context, reminders []Reminder) error {
	if len(reminders) == 0 {
		return nil
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, r := range reminders {
			if err := s.writeReminder(ctx, pipe, r); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store reminders: %w", err)
	}
	return nil
}

func (s *RedisStore) writeReminder(ctx context.Context, pipe redis.Pipeliner, r Reminder) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal reminder %s: %w", r.ID, err)
	}

	score := float64(r.ScheduledTime.Unix())
	pipe.Set(ctx, s.reminderKey(r.ID), data, 0)
	pipe.ZAdd(ctx, s.patientRemindersKey(r.PatientID), &redis.Z{Score: score, Member: r.ID})
	if r.Status == StatusScheduled {
		pipe.ZAdd(ctx, s.scheduledKey(), &redis.Z{Score: score, Member: r.ID})
	} else {
		pipe.ZRem(ctx, s.scheduledKey(), r.ID)
	}
	return nil
}

// GetReminder loads one reminder.
func (s *RedisStore) GetReminder(ctx context.Context, id string) (*Reminder, error) {
	val, err := s.client.Get(ctx, s.reminderKey(id)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, reminderNotFound(id)
		}
		return nil, fmt.Errorf("failed to get reminder: %w", err)
	}

	var r Reminder
	if err := json.Unmarshal([]byte(val), &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal reminder: %w", err)
	}
	return &r, nil
}

// ListReminders returns a patient's reminders ordered by scheduled time.
func (s *RedisStore) ListReminders(ctx context.Context, patientID string) ([]Reminder, error) {
	ids, err := s.client.ZRange(ctx, s.patientRemindersKey(patientID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list reminders: %w", err)
	}
	return s.loadReminders(ctx, ids)
}

// DueReminders returns scheduled, un-notified reminders at or before now.
func (s *RedisStore) DueReminders(ctx context.Context, now time.Time) ([]Reminder, error) {
	reminders, err := s.scheduledUpTo(ctx, strconv.FormatInt(now.Unix(), 10))
	if err != nil {
		return nil, fmt.Errorf("failed to get due reminders: %w", err)
	}

	due := reminders[:0]
	for _, r := range reminders {
		if !r.NotificationSent {
			due = append(due, r)
		}
	}
	return due, nil
}

// StaleReminders returns scheduled reminders strictly before cutoff.
func (s *RedisStore) StaleReminders(ctx context.Context, cutoff time.Time) ([]Reminder, error) {
	reminders, err := s.scheduledUpTo(ctx, "("+strconv.FormatInt(cutoff.Unix(), 10))
	if err != nil {
		return nil, fmt.Errorf("failed to get stale reminders: %w", err)
	}
	return reminders, nil
}

func (s *RedisStore) scheduledUpTo(ctx context.Context, max string) ([]Reminder, error) {
	ids, err := s.client.ZRangeByScore(ctx, s.scheduledKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: max,
	}).Result()
	if err != nil {
		return nil, err
	}
	return s.loadReminders(ctx, ids)
}

func (s *RedisStore) loadReminders(ctx context.Context, ids []string) ([]Reminder, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.reminderKey(id)
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load reminders: %w", err)
	}

	reminders := make([]Reminder, 0, len(vals))
	for i, v := range vals {
		str, ok := v.(string)
		if !ok {
			s.logger.Warn("reminder index points at missing record", zap.String("reminder_id", ids[i]))
			continue
		}
		var r Reminder
		if err := json.Unmarshal([]byte(str), &r); err != nil {
			return nil, fmt.Errorf("failed to unmarshal reminder %s: %w", ids[i], err)
		}
		reminders = append(reminders, r)
	}
	return reminders, nil
}

// UpdateReminder rewrites the record with the given fields applied.
func (s *RedisStore) UpdateReminder(ctx context.Context, id string, fields ReminderUpdate) error {
	r, err := s.GetReminder(ctx, id)
	if err != nil {
		return err
	}
	if fields.Empty() {
		return nil
	}

	updated := fields.Apply(*r)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		return s.writeReminder(ctx, pipe, updated)
	})
	if err != nil {
		return fmt.Errorf("failed to update reminder: %w", err)
	}
	return nil
}

// SaveProfile stores a patient profile.
func (s *RedisStore) SaveProfile(ctx context.Context, p Profile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}
	if err := s.client.Set(ctx, s.profileKey(p.PatientID), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

// GetProfile loads a patient profile.
func (s *RedisStore) GetProfile(ctx context.Context, patientID string) (*Profile, error) {
	val, err := s.client.Get(ctx, s.profileKey(patientID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, profileNotFound(patientID)
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	var p Profile
	if err := json.Unmarshal([]byte(val), &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profile: %w", err)
	}
	return &p, nil
}
