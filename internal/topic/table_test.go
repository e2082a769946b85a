package topic

import "testing"

type fakeSub struct {
	name string
}

func (f *fakeSub) Name() string             { return f.name }
func (f *fakeSub) Deliver(line []byte) error { return nil }

func TestSubscribeCreatesTopic(t *testing.T) {
	table := New()
	a := &fakeSub{name: "a"}

	table.Lock()
	table.Subscribe("news", a)
	ok := table.HasTopic("news")
	table.Unlock()

	if !ok {
		t.Fatal("expected topic to exist after subscribe")
	}
}

func TestSubscribeIsIdempotent(t *testing.T) {
	table := New()
	a := &fakeSub{name: "a"}

	table.Lock()
	table.Subscribe("news", a)
	table.Subscribe("news", a)
	count := 0
	table.Publish("news", func(Subscriber) { count++ })
	table.Unlock()

	if count != 1 {
		t.Fatalf("expected subscriber to appear once, got %d deliveries", count)
	}
}

func TestUnsubscribeRemovesEmptyTopic(t *testing.T) {
	table := New()
	a := &fakeSub{name: "a"}

	table.Lock()
	table.Subscribe("news", a)
	removed := table.Unsubscribe("news", a)
	exists := table.HasTopic("news")
	table.Unlock()

	if !removed {
		t.Fatal("expected unsubscribe to report removal")
	}
	if exists {
		t.Fatal("expected topic to be pruned once empty")
	}
}

func TestUnsubscribeRestoresPriorState(t *testing.T) {
	table := New()
	a := &fakeSub{name: "a"}

	table.Lock()
	before := table.TopicCount()
	table.Subscribe("news", a)
	table.Unsubscribe("news", a)
	after := table.TopicCount()
	table.Unlock()

	if before != after {
		t.Fatalf("expected topic count to be restored: before=%d after=%d", before, after)
	}
}

func TestUnsubscribeUnknownTopicIsNoop(t *testing.T) {
	table := New()
	a := &fakeSub{name: "a"}

	table.Lock()
	removed := table.Unsubscribe("ghost", a)
	table.Unlock()

	if removed {
		t.Fatal("expected no-op unsubscribe from unknown topic")
	}
}

func TestUnsubscribeNotSubscribedIsNoop(t *testing.T) {
	table := New()
	a := &fakeSub{name: "a"}
	b := &fakeSub{name: "b"}

	table.Lock()
	table.Subscribe("news", a)
	removed := table.Unsubscribe("news", b)
	still := table.HasTopic("news")
	table.Unlock()

	if removed {
		t.Fatal("expected unsubscribe of a non-member to be a no-op")
	}
	if !still {
		t.Fatal("expected topic to remain since a is still subscribed")
	}
}

func TestPublishFanOutToAllSubscribers(t *testing.T) {
	table := New()
	a := &fakeSub{name: "a"}
	b := &fakeSub{name: "b"}

	table.Lock()
	table.Subscribe("t", a)
	table.Subscribe("t", b)
	var delivered []string
	found := table.Publish("t", func(s Subscriber) {
		delivered = append(delivered, s.Name())
	})
	table.Unlock()

	if !found {
		t.Fatal("expected topic to be found")
	}
	if len(delivered) != 2 {
		t.Fatalf("expected 2 deliveries, got %d", len(delivered))
	}
}

func TestPublishUnknownTopicIsSilentNoop(t *testing.T) {
	table := New()

	table.Lock()
	found := table.Publish("ghost", func(Subscriber) {
		t.Fatal("fn should not be called for an unknown topic")
	})
	table.Unlock()

	if found {
		t.Fatal("expected publish to an unknown topic to report not found")
	}
}

func TestRemoveSubscriberClearsAllTopics(t *testing.T) {
	table := New()
	a := &fakeSub{name: "a"}

	table.Lock()
	table.Subscribe("t1", a)
	table.Subscribe("t2", a)
	table.RemoveSubscriber(a)
	remaining := table.TopicCount()
	table.Unlock()

	if remaining != 0 {
		t.Fatalf("expected all topics to be pruned, got %d remaining", remaining)
	}
}

func TestSetNeverEmptyWhileInTable(t *testing.T) {
	table := New()
	a := &fakeSub{name: "a"}
	b := &fakeSub{name: "b"}

	table.Lock()
	table.Subscribe("t", a)
	table.Subscribe("t", b)
	table.Unsubscribe("t", a)
	exists := table.HasTopic("t")
	table.Unlock()

	if !exists {
		t.Fatal("topic should still exist while b remains subscribed")
	}
}
