package round

import "fmt"

// SubmitContent appends a content entry for a depositor and pushes the
// round deadline to now + time_limit. The challenge fee transfer is the
// caller's responsibility (see Engine.SubmitContent).
func (s *RoundState) SubmitContent(author Identity, text, mediaURI string, now uint64) error {
	if !s.IsDepositor(author) {
		return fmt.Errorf("%w: %s", ErrNotAParticipant, author)
	}
	if err := checkLen("text", text, MaxTextLen); err != nil {
		return err
	}
	if err := checkLen("media_uri", mediaURI, MaxMediaURILen); err != nil {
		return err
	}
	if err := checkCapacity("contents", len(s.Contents), MaxContents); err != nil {
		return err
	}

	s.Contents = append(s.Contents, ContentEntry{
		Author:          author,
		Text:            text,
		MediaURI:        mediaURI,
		SubmittedAt:     now,
		ChallengeAmount: ChallengeAmount,
	})
	s.TimeoutTimestamp = now + s.Config.TimeLimit
	return nil
}

// EndorseContent adds one vote to a content entry. Each depositor may endorse
// a given entry once.
func (s *RoundState) EndorseContent(voter Identity, index int) error {
	if !s.IsDepositor(voter) {
		return fmt.Errorf("%w: %s", ErrNotAParticipant, voter)
	}
	if index < 0 || index >= len(s.Contents) {
		return fmt.Errorf("%w: %d", ErrInvalidContentIndex, index)
	}
	entry := &s.Contents[index]
	for _, e := range entry.Endorsers {
		if e == voter {
			return fmt.Errorf("%w: content %d", ErrAlreadyVoted, index)
		}
	}
	if err := checkCapacity("endorsements", len(entry.Endorsers), MaxEndorsements); err != nil {
		return err
	}
	entry.Endorsers = append(entry.Endorsers, voter)
	entry.VoteCount++
	return nil
}
