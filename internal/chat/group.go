package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"teamline/server/internal/models"
	"teamline/server/internal/roomkey"
	"teamline/server/internal/store"
)

// GroupBroadcaster is the slice of the fan-out surface the group service
// needs. Satisfied by *broadcast.Broadcaster.
type GroupBroadcaster interface {
	GroupMessage(msg models.GroupMessage, members []models.GroupMember)
	SystemMessage(msg models.GroupMessage)
	GroupMessageDeleted(msg models.GroupMessage, deletedBy string)
	GroupMessageRedacted(msg models.GroupMessage, deletedBy string)
	GroupCreated(group models.Group, memberIDs []string, creatorID string)
	MemberAdded(group models.Group, memberID, addedBy string)
	MemberLeft(groupID, memberID string)
	GroupDeleted(group models.Group, memberIDs []string)
}

// GroupService handles group lifecycle, membership, and group messaging.
type GroupService struct {
	groups   store.Groups
	messages store.GroupMessages
	bcast    GroupBroadcaster
	logger   *zap.Logger
	locks    *keyedMutex
	now      func() time.Time
	newID    func() string
}

func NewGroupService(groups store.Groups, messages store.GroupMessages, bcast GroupBroadcaster, logger *zap.Logger) *GroupService {
	return &GroupService{
		groups:   groups,
		messages: messages,
		bcast:    bcast,
		logger:   logger,
		locks:    newKeyedMutex(),
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

type CreateGroupInput struct {
	Name           string
	CreatedBy      string
	Members        []string
	OrganizationID *int64
}

// Create registers a group with its initial membership, writes the
// creation system message into the group's history, and announces the new
// group. The creator is recorded as owner but joins the member set only
// when listed explicitly.
func (s *GroupService) Create(ctx context.Context, in CreateGroupInput) (*models.GroupWithMembers, error) {
	name := strings.TrimSpace(in.Name)
	creator := roomkey.Normalize(in.CreatedBy)
	if name == "" {
		return nil, requiredField("name")
	}
	if creator == "" {
		return nil, requiredField("createdBy")
	}

	members := lo.Uniq(lo.FilterMap(in.Members, func(m string, _ int) (string, bool) {
		n := roomkey.Normalize(m)
		return n, n != ""
	}))

	group := &models.Group{
		GroupID:        s.newID(),
		Name:           name,
		CreatedBy:      creator,
		OrganizationID: in.OrganizationID,
		CreatedAt:      s.now(),
	}
	if err := s.groups.Create(ctx, group); err != nil {
		return nil, fmt.Errorf("create group: %w", err)
	}

	for _, member := range members {
		err := s.groups.AddMember(ctx, &models.GroupMember{
			GroupID:  group.GroupID,
			MemberID: member,
			JoinedAt: group.CreatedAt,
		})
		if err != nil && !errors.Is(err, store.ErrDuplicateMember) {
			return nil, fmt.Errorf("add initial member %s: %w", member, err)
		}
	}

	system := &models.GroupMessage{
		GroupID:        group.GroupID,
		SenderID:       creator,
		Content:        fmt.Sprintf("%s created the group", creator),
		MessageType:    models.MessageTypeSystem,
		OrganizationID: in.OrganizationID,
		SentAt:         group.CreatedAt,
	}
	saved, err := s.messages.Append(ctx, system)
	if err != nil {
		// The group exists; a missing system message is cosmetic.
		s.logger.Warn("creation system message not persisted",
			zap.String("groupId", group.GroupID),
			zap.Error(err),
		)
	} else {
		s.bcast.SystemMessage(*saved)
	}

	s.logger.Info("group created",
		zap.String("groupId", group.GroupID),
		zap.String("createdBy", creator),
		zap.Int("members", len(members)),
	)

	s.bcast.GroupCreated(*group, members, creator)
	return &models.GroupWithMembers{
		GroupID:        group.GroupID,
		Name:           group.Name,
		CreatedBy:      group.CreatedBy,
		OrganizationID: group.OrganizationID,
		Members:        members,
		CreatedAt:      group.CreatedAt,
	}, nil
}

// Get returns a group with its member list, or ErrNotFound.
func (s *GroupService) Get(ctx context.Context, groupID string) (*models.GroupWithMembers, error) {
	group, err := s.groups.Get(ctx, groupID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load group: %w", err)
	}

	members, err := s.Members(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return &models.GroupWithMembers{
		GroupID:        group.GroupID,
		Name:           group.Name,
		CreatedBy:      group.CreatedBy,
		OrganizationID: group.OrganizationID,
		Members:        members,
		CreatedAt:      group.CreatedAt,
	}, nil
}

// AddMember inserts a member into an existing group. Duplicate additions
// surface as ErrAlreadyMember so the caller can distinguish them from a
// first-time add.
func (s *GroupService) AddMember(ctx context.Context, groupID, memberID, addedBy string) error {
	member := roomkey.Normalize(memberID)
	if member == "" {
		return requiredField("memberId")
	}

	group, err := s.groups.Get(ctx, groupID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("load group: %w", err)
	}

	err = s.groups.AddMember(ctx, &models.GroupMember{
		GroupID:  groupID,
		MemberID: member,
		JoinedAt: s.now(),
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicateMember) {
			return ErrAlreadyMember
		}
		return fmt.Errorf("add member: %w", err)
	}

	s.bcast.MemberAdded(*group, member, roomkey.Normalize(addedBy))
	return nil
}

// RemoveMember takes a member out of a group. Removing an absent member is
// a no-op and still succeeds, so leave is idempotent; only an actual
// removal announces a departure.
func (s *GroupService) RemoveMember(ctx context.Context, groupID, memberID string) error {
	member := roomkey.Normalize(memberID)
	if member == "" {
		return requiredField("memberId")
	}

	removed, err := s.groups.RemoveMember(ctx, groupID, member)
	if err != nil {
		return fmt.Errorf("remove member: %w", err)
	}

	if removed {
		s.bcast.MemberLeft(groupID, member)
	}
	return nil
}

// Delete tears a group down: messages, then memberships, then the group
// record. Only the creator may delete; groups that predate creator
// tracking have a blank owner, and any member may delete those.
func (s *GroupService) Delete(ctx context.Context, groupID, requesterID string) error {
	requester := roomkey.Normalize(requesterID)
	if requester == "" {
		return requiredField("userId")
	}

	group, err := s.groups.Get(ctx, groupID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("load group: %w", err)
	}

	members, err := s.groups.Members(ctx, groupID)
	if err != nil {
		return fmt.Errorf("load members: %w", err)
	}
	memberIDs := lo.Map(members, func(m models.GroupMember, _ int) string { return m.MemberID })

	if !s.mayDelete(*group, memberIDs, requester) {
		return ErrForbidden
	}

	// Each cascade step commits independently. A mid-cascade failure leaves
	// the group partially removed and is reported as such; retrying the
	// delete resumes where it failed.
	if err := s.messages.DeleteByGroup(ctx, groupID); err != nil {
		return fmt.Errorf("%w: deleting messages: %v", ErrPartialDeletion, err)
	}
	if err := s.groups.RemoveMembersByGroup(ctx, groupID); err != nil {
		return fmt.Errorf("%w: deleting members: %v", ErrPartialDeletion, err)
	}
	if err := s.groups.Delete(ctx, groupID); err != nil {
		return fmt.Errorf("%w: deleting group: %v", ErrPartialDeletion, err)
	}

	s.logger.Info("group deleted",
		zap.String("groupId", groupID),
		zap.String("deletedBy", requester),
	)

	s.bcast.GroupDeleted(*group, memberIDs)
	return nil
}

func (s *GroupService) mayDelete(group models.Group, memberIDs []string, requester string) bool {
	if strings.EqualFold(group.CreatedBy, requester) {
		return true
	}
	if group.CreatedBy != "" {
		return false
	}
	return lo.ContainsBy(memberIDs, func(m string) bool {
		return strings.EqualFold(m, requester)
	})
}

// Members lists member identifiers. An unknown group yields an empty list,
// not an error.
func (s *GroupService) Members(ctx context.Context, groupID string) ([]string, error) {
	members, err := s.groups.Members(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("load members: %w", err)
	}
	return lo.Map(members, func(m models.GroupMember, _ int) string { return m.MemberID }), nil
}

// GroupsOf lists every group a member belongs to, each with its full
// member set.
func (s *GroupService) GroupsOf(ctx context.Context, memberID string) ([]models.GroupWithMembers, error) {
	member := roomkey.Normalize(memberID)
	if member == "" {
		return nil, requiredField("memberId")
	}

	memberships, err := s.groups.MembershipsOf(ctx, member)
	if err != nil {
		return nil, fmt.Errorf("load memberships: %w", err)
	}

	out := make([]models.GroupWithMembers, 0, len(memberships))
	for _, membership := range memberships {
		group, err := s.groups.Get(ctx, membership.GroupID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				// Orphaned membership row, skip it.
				continue
			}
			return nil, fmt.Errorf("load group %s: %w", membership.GroupID, err)
		}

		members, err := s.Members(ctx, membership.GroupID)
		if err != nil {
			return nil, err
		}
		out = append(out, models.GroupWithMembers{
			GroupID:        group.GroupID,
			Name:           group.Name,
			CreatedBy:      group.CreatedBy,
			OrganizationID: group.OrganizationID,
			Members:        members,
			CreatedAt:      group.CreatedAt,
		})
	}
	return out, nil
}

// ParseMessageType maps a client-supplied type onto the known set. Unknown
// or system values come back empty so the send path applies its own
// default; clients cannot mint system messages.
func ParseMessageType(raw string) models.MessageType {
	switch models.MessageType(strings.ToUpper(strings.TrimSpace(raw))) {
	case models.MessageTypeText:
		return models.MessageTypeText
	case models.MessageTypeFile:
		return models.MessageTypeFile
	default:
		return ""
	}
}

type SendGroupInput struct {
	GroupID        string
	SenderID       string
	Content        string
	Attachment     *models.Attachment
	MessageType    models.MessageType
	OrganizationID *int64
}

// Send persists a group message and fans it out to the membership read at
// send time. A blank group id is dropped without error so a half-open
// client cannot poison the channel; a blank sender is a validation error.
// The group record itself is not required to exist: messages sent while a
// group is being provisioned are accepted, they just carry no inherited
// organization.
func (s *GroupService) Send(ctx context.Context, in SendGroupInput) (*models.GroupMessage, error) {
	groupID := strings.TrimSpace(in.GroupID)
	if groupID == "" {
		s.logger.Warn("group message without group id dropped",
			zap.String("senderId", in.SenderID),
		)
		return nil, nil
	}

	sender := roomkey.Normalize(in.SenderID)
	if sender == "" {
		return nil, requiredField("senderId")
	}

	content := in.Content
	if content == "" && in.Attachment != nil {
		content = "📎 " + in.Attachment.Name
	}

	messageType := in.MessageType
	if messageType == "" {
		messageType = models.MessageTypeText
		if in.Attachment != nil {
			messageType = models.MessageTypeFile
		}
	}

	orgID := in.OrganizationID
	if orgID == nil {
		if group, err := s.groups.Get(ctx, groupID); err == nil {
			orgID = group.OrganizationID
		}
	}

	msg := &models.GroupMessage{
		GroupID:        groupID,
		SenderID:       sender,
		Content:        content,
		Attachment:     in.Attachment,
		MessageType:    messageType,
		OrganizationID: orgID,
	}

	unlock := s.locks.Lock(groupID)
	msg.SentAt = s.now()
	saved, err := s.messages.Append(ctx, msg)
	unlock()
	if err != nil {
		return nil, fmt.Errorf("append group message: %w", err)
	}

	members, err := s.groups.Members(ctx, groupID)
	if err != nil {
		s.logger.Warn("member list unavailable, skipping notifications",
			zap.String("groupId", groupID),
			zap.Error(err),
		)
		members = nil
	}

	s.bcast.GroupMessage(*saved, members)
	return saved, nil
}

// History returns a group's messages ascending by sentAt. With an
// organization id the result is scoped to that tenant; without one it is
// the full channel history.
func (s *GroupService) History(ctx context.Context, groupID string, organizationID *int64) ([]models.GroupMessage, error) {
	if strings.TrimSpace(groupID) == "" {
		return nil, requiredField("groupId")
	}

	var (
		msgs []models.GroupMessage
		err  error
	)
	if organizationID != nil {
		msgs, err = s.messages.HistoryByGroupAndOrg(ctx, groupID, *organizationID)
	} else {
		msgs, err = s.messages.HistoryByGroup(ctx, groupID)
	}
	if err != nil {
		return nil, fmt.Errorf("load group history: %w", err)
	}
	return msgs, nil
}

// DeleteMessage soft-deletes a group message. Sender-only; content stays.
func (s *GroupService) DeleteMessage(ctx context.Context, messageID int64, requesterID string) (*models.GroupMessage, error) {
	requester := roomkey.Normalize(requesterID)
	if requester == "" {
		return nil, requiredField("userId")
	}

	msg, err := s.messages.Get(ctx, messageID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load message: %w", err)
	}

	if !strings.EqualFold(msg.SenderID, requester) {
		return nil, ErrForbidden
	}

	deletedAt := s.now()
	if err := s.messages.MarkDeleted(ctx, messageID, requester, deletedAt); err != nil {
		return nil, fmt.Errorf("mark message deleted: %w", err)
	}

	msg.Deleted = true
	msg.DeletedAt = &deletedAt
	msg.DeletedBy = &requester

	s.bcast.GroupMessageDeleted(*msg, requester)
	return msg, nil
}

// RedactMessage deletes a group message for everyone: content is replaced
// with the placeholder and the attachment is dropped. This is the
// moderation path, so it carries no ownership check; route-level
// authorization decides who may call it.
func (s *GroupService) RedactMessage(ctx context.Context, messageID int64, requesterID string) (*models.GroupMessage, error) {
	requester := roomkey.Normalize(requesterID)
	if requester == "" {
		return nil, requiredField("userId")
	}

	msg, err := s.messages.Get(ctx, messageID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load message: %w", err)
	}

	deletedAt := s.now()
	if err := s.messages.Redact(ctx, messageID, requester, deletedAt, RedactionPlaceholder); err != nil {
		return nil, fmt.Errorf("redact message: %w", err)
	}

	msg.Content = RedactionPlaceholder
	msg.Attachment = nil
	msg.Deleted = true
	msg.DeletedAt = &deletedAt
	msg.DeletedBy = &requester

	s.bcast.GroupMessageRedacted(*msg, requester)
	return msg, nil
}

// IsMember reports whether memberID belongs to groupID. The live channel
// gate uses it before accepting a group subscription.
func (s *GroupService) IsMember(ctx context.Context, groupID, memberID string) (bool, error) {
	member := roomkey.Normalize(memberID)
	members, err := s.groups.Members(ctx, groupID)
	if err != nil {
		return false, fmt.Errorf("load members: %w", err)
	}
	return lo.ContainsBy(members, func(m models.GroupMember) bool {
		return strings.EqualFold(m.MemberID, member)
	}), nil
}
