package analyses

import "sync"

// subscriberBuffer is the number of snapshots a slow subscriber may lag behind before
// older snapshots are dropped in favour of newer ones.
const subscriberBuffer = 16

type subscriber struct {
	ch   chan Job
	sent bool
}

// notifier fans job snapshots out to in-process subscribers.
type notifier struct {
	mu   sync.Mutex
	next int
	subs map[string]map[int]*subscriber
}

func newNotifier() *notifier {
	return &notifier{subs: make(map[string]map[int]*subscriber)}
}

// subscribe registers a subscriber for a job. The returned func is idempotent.
func (n *notifier) subscribe(jobID string) (int, <-chan Job, func()) {
	sub := &subscriber{ch: make(chan Job, subscriberBuffer)}
	n.mu.Lock()
	n.next++
	id := n.next
	if n.subs[jobID] == nil {
		n.subs[jobID] = make(map[int]*subscriber)
	}
	n.subs[jobID][id] = sub
	n.mu.Unlock()

	return id, sub.ch, func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		n.removeLocked(jobID, id)
	}
}

// prime hands a freshly subscribed reader its initial snapshot. It is skipped when a
// published snapshot already reached the subscriber, since that one is at least as new.
func (n *notifier) prime(jobID string, id int, job Job) {
	n.mu.Lock()
	defer n.mu.Unlock()
	sub, ok := n.subs[jobID][id]
	if !ok || sub.sent {
		return
	}
	n.sendLocked(jobID, id, sub, job)
}

// publish sends a snapshot to every subscriber of the job. Sends never block.
func (n *notifier) publish(job Job) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for id, sub := range n.subs[job.ID] {
		n.sendLocked(job.ID, id, sub, job.Clone())
	}
}

func (n *notifier) sendLocked(jobID string, id int, sub *subscriber, job Job) {
	send(sub.ch, job)
	sub.sent = true
	if job.Status.Terminal() {
		n.removeLocked(jobID, id)
	}
}

func (n *notifier) removeLocked(jobID string, id int) {
	subs := n.subs[jobID]
	sub, ok := subs[id]
	if !ok {
		return
	}
	delete(subs, id)
	close(sub.ch)
	if len(subs) == 0 {
		delete(n.subs, jobID)
	}
}

// send drops the oldest buffered snapshot when the channel is full.
func send(ch chan Job, job Job) {
	for {
		select {
		case ch <- job:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
