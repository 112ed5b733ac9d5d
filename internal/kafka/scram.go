package kafka

import (
	"github.com/xdg-go/scram"
)

// scramClient adapts xdg-go/scram to sarama's SCRAMClient.
type scramClient struct {
	generator    scram.HashGeneratorFcn
	conversation *scram.ClientConversation
}

func newSCRAMSHA512Client() *scramClient {
	return &scramClient{generator: scram.SHA512}
}

func (s *scramClient) Begin(userName, password, authzID string) error {
	client, err := s.generator.NewClient(userName, password, authzID)
	if err != nil {
		return err
	}

	s.conversation = client.NewConversation()

	return nil
}

func (s *scramClient) Step(challenge string) (string, error) {
	return s.conversation.Step(challenge)
}

func (s *scramClient) Done() bool {
	return s.conversation.Done()
}
