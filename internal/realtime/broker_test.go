package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bytedance/sonic"

	"github.com/mastermhp/Live-Baz-sub000/internal/domain/match"
)

var fixedNow = time.Date(2026, 4, 1, 20, 0, 0, 0, time.UTC)

func newTestBroker() *Broker {
	return NewBroker(WithClock(func() time.Time { return fixedNow }))
}

func drain(t *testing.T, conn *ChannelConn) []Event {
	t.Helper()

	var out []Event
	for {
		select {
		case payload := <-conn.Outbound():
			var event Event
			if err := sonic.Unmarshal(payload, &event); err != nil {
				t.Fatalf("decode event: %v", err)
			}
			out = append(out, event)
		default:
			return out
		}
	}
}

func TestBroker_JoinLeaveIdempotent(t *testing.T) {
	t.Parallel()

	broker := newTestBroker()
	conn := NewChannelConn("c1", 4)

	for i := 0; i < 3; i++ {
		if err := broker.Join(conn, MatchTopic("10")); err != nil {
			t.Fatalf("join: %v", err)
		}
	}
	if broker.Members(MatchTopic("10")) != 1 {
		t.Fatalf("expected single membership, got %d", broker.Members(MatchTopic("10")))
	}

	broker.Leave(conn, MatchTopic("10"))
	broker.Leave(conn, MatchTopic("10"))
	broker.Leave(conn, LiveFeedTopic)
	if broker.Members(MatchTopic("10")) != 0 {
		t.Fatalf("expected empty topic after leave")
	}
}

func TestBroker_JoinRejectsInvalidTopic(t *testing.T) {
	t.Parallel()

	broker := newTestBroker()
	for _, topic := range []string{"", "match:", "match:  ", "scores"} {
		if err := broker.Join(NewChannelConn("c", 1), topic); !errors.Is(err, ErrInvalidTopic) {
			t.Fatalf("topic %q: expected ErrInvalidTopic, got %v", topic, err)
		}
	}
}

func TestBroker_PublishIsolatesTopics(t *testing.T) {
	t.Parallel()

	broker := newTestBroker()
	matchSub := NewChannelConn("match-sub", 4)
	feedSub := NewChannelConn("feed-sub", 4)
	otherSub := NewChannelConn("other-sub", 4)
	_ = broker.Join(matchSub, MatchTopic("1"))
	_ = broker.Join(feedSub, LiveFeedTopic)
	_ = broker.Join(otherSub, MatchTopic("2"))

	record := match.Record{ID: "1", Status: match.StatusLive, Score: match.Score{Home: 1}}
	result, err := broker.Publish(context.Background(), MatchTopic("1"), MatchUpdate(record))
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if result.Delivered != 1 || result.Dropped != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}

	events := drain(t, matchSub)
	if len(events) != 1 {
		t.Fatalf("expected one event, got %d", len(events))
	}
	if events[0].Kind != EventMatchUpdate || events[0].MatchID != "1" || events[0].Match == nil {
		t.Fatalf("unexpected event: %+v", events[0])
	}
	if !events[0].Timestamp.Equal(fixedNow) {
		t.Fatalf("expected publish-time stamp, got %s", events[0].Timestamp)
	}
	if len(drain(t, feedSub)) != 0 || len(drain(t, otherSub)) != 0 {
		t.Fatalf("event leaked to other topics")
	}
}

func TestBroker_DisconnectRemovesFromAllTopics(t *testing.T) {
	t.Parallel()

	broker := newTestBroker()
	conn := NewChannelConn("c1", 4)
	_ = broker.Join(conn, LiveFeedTopic)
	_ = broker.Join(conn, MatchTopic("1"))
	_ = broker.Join(conn, MatchTopic("2"))

	broker.Disconnect(conn)

	if topics := broker.Topics(conn); len(topics) != 0 {
		t.Fatalf("expected no topics after disconnect, got %v", topics)
	}
	for _, topic := range []string{LiveFeedTopic, MatchTopic("1"), MatchTopic("2")} {
		result, err := broker.Publish(context.Background(), topic, MatchUpdate(match.Record{ID: "1"}))
		if err != nil {
			t.Fatalf("publish: %v", err)
		}
		if result.Delivered != 0 {
			t.Fatalf("delivered to disconnected connection on %s", topic)
		}
	}
	if len(drain(t, conn)) != 0 {
		t.Fatalf("disconnected connection received events")
	}
}

func TestBroker_DropsFullAndClosedConnections(t *testing.T) {
	t.Parallel()

	broker := newTestBroker()
	healthy := NewChannelConn("healthy", 8)
	slow := NewChannelConn("slow", 1)
	gone := NewChannelConn("gone", 8)
	for _, conn := range []*ChannelConn{healthy, slow, gone} {
		_ = broker.Join(conn, LiveFeedTopic)
	}
	_ = broker.Join(slow, MatchTopic("9"))
	_ = broker.Join(gone, MatchTopic("9"))

	// Fill the slow buffer and drop the peer mid-broadcast.
	_ = slow.Send([]byte("{}"))
	gone.Close()

	result, err := broker.Publish(context.Background(), LiveFeedTopic, MatchUpdate(match.Record{ID: "9"}))
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if result.Delivered != 1 || result.Dropped != 2 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(drain(t, healthy)) != 1 {
		t.Fatalf("healthy subscriber must still receive the event")
	}
	if broker.Members(LiveFeedTopic) != 1 {
		t.Fatalf("dropped subscribers must leave the topic before the next publish")
	}
	if got := broker.Topics(slow); len(got) != 1 || got[0] != MatchTopic("9") {
		t.Fatalf("slow subscriber only leaves the topic it overflowed on, got %v", got)
	}
	if got := broker.Topics(gone); len(got) != 0 {
		t.Fatalf("closed subscriber must be disconnected, got %v", got)
	}

	second, _ := broker.Publish(context.Background(), LiveFeedTopic, MatchUpdate(match.Record{ID: "9"}))
	if second.Delivered != 1 || second.Dropped != 0 {
		t.Fatalf("unexpected second result: %+v", second)
	}
}

func TestBroker_PublishRejectsInvalidTopic(t *testing.T) {
	t.Parallel()

	_, err := newTestBroker().Publish(context.Background(), "bogus", Event{Kind: EventMatchUpdate})
	if !errors.Is(err, ErrPublishFailure) || !errors.Is(err, ErrInvalidTopic) {
		t.Fatalf("expected publish failure, got %v", err)
	}
}

func TestBroker_ConcurrentMembershipChanges(t *testing.T) {
	t.Parallel()

	broker := newTestBroker()
	stable := NewChannelConn("stable", 1024)
	_ = broker.Join(stable, LiveFeedTopic)

	var wg sync.WaitGroup
	for worker := 0; worker < 8; worker++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				conn := NewChannelConn(fmt.Sprintf("w%d-%d", worker, i), 4)
				_ = broker.Join(conn, LiveFeedTopic)
				_ = broker.Join(conn, MatchTopic(fmt.Sprint(i)))
				_, _ = broker.Publish(context.Background(), LiveFeedTopic, MatchUpdate(match.Record{ID: "x"}))
				broker.Disconnect(conn)
			}
		}(worker)
	}
	wg.Wait()

	if broker.Members(LiveFeedTopic) != 1 {
		t.Fatalf("expected only the stable member to remain, got %d", broker.Members(LiveFeedTopic))
	}
	if topics := broker.Topics(stable); len(topics) != 1 || topics[0] != LiveFeedTopic {
		t.Fatalf("stable membership corrupted: %v", topics)
	}
}

func TestEventConstructors(t *testing.T) {
	t.Parallel()

	minute := 44
	record := match.Record{ID: "5", Status: match.StatusLive, Score: match.Score{Home: 2, Away: 1}, Elapsed: &minute}

	goal := GoalScored(record, "home", match.Score{Home: 1, Away: 1})
	if goal.Kind != EventGoalScored || goal.Goal.Side != "home" || goal.Goal.Current.Home != 2 || *goal.Goal.Minute != 44 {
		t.Fatalf("unexpected goal event: %+v", goal)
	}
	minute = 50
	if *goal.Goal.Minute != 44 {
		t.Fatalf("goal event aliases record elapsed minute")
	}

	status := StatusChanged(record, match.StatusUpcoming)
	if status.Status.Previous != match.StatusUpcoming || status.Status.Current != match.StatusLive {
		t.Fatalf("unexpected status event: %+v", status)
	}
}
