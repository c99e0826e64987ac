package transport

import (
	"errors"
	"testing"
	"time"

	"github.com/mymmrac/telego/telegoapi"
)

func TestParseChatRef(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want ChatRef
		ok   bool
	}{
		{"@newschannel", ChatRef{Username: "newschannel"}, true},
		{"https://t.me/newschannel", ChatRef{Username: "newschannel"}, true},
		{"https://t.me/newschannel?start=abc", ChatRef{Username: "newschannel"}, true},
		{"t.me/newschannel/", ChatRef{Username: "newschannel"}, true},
		{"-1001234567890", ChatRef{ID: -1001234567890}, true},
		{"  @spaced  ", ChatRef{Username: "spaced"}, true},
		{"https://t.me/joinchat/AbCdEf", ChatRef{}, false},
		{"https://t.me/+AbCdEf", ChatRef{}, false},
		{"@", ChatRef{}, false},
		{"just words", ChatRef{}, false},
		{"", ChatRef{}, false},
	}

	for _, tc := range cases {
		got, ok := ParseChatRef(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("ParseChatRef(%q) = %+v, %v; want %+v, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestMemberStatusJoined(t *testing.T) {
	t.Parallel()

	joined := []MemberStatus{MemberCreator, MemberAdministrator, MemberMember, MemberRestricted, MemberUnknown}
	for _, s := range joined {
		if !s.Joined() {
			t.Fatalf("%s should count as joined", s)
		}
	}
	for _, s := range []MemberStatus{MemberLeft, MemberBanned} {
		if s.Joined() {
			t.Fatalf("%s should not count as joined", s)
		}
	}
}

func TestClassifyRateLimit(t *testing.T) {
	t.Parallel()

	err := classifyError(&telegoapi.Error{
		ErrorCode:   429,
		Description: "Too Many Requests: retry after 7",
		Parameters:  &telegoapi.ResponseParameters{RetryAfter: 7},
	})

	var rl *RateLimitError
	if !errors.As(err, &rl) {
		t.Fatalf("expected RateLimitError, got: %v", err)
	}
	if rl.RetryAfter != 7*time.Second {
		t.Fatalf("retry after mismatch: %s", rl.RetryAfter)
	}
}

func TestClassifyRateLimitWithoutParameters(t *testing.T) {
	t.Parallel()

	err := classifyError(&telegoapi.Error{ErrorCode: 429, Description: "Too Many Requests"})

	var rl *RateLimitError
	if !errors.As(err, &rl) {
		t.Fatalf("expected RateLimitError, got: %v", err)
	}
	if rl.RetryAfter <= 0 {
		t.Fatalf("expected positive fallback retry-after, got %s", rl.RetryAfter)
	}
}

func TestClassifyPermissionAndChatErrors(t *testing.T) {
	t.Parallel()

	err := classifyError(&telegoapi.Error{ErrorCode: 403, Description: "Forbidden: bot is not a member"})
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got: %v", err)
	}

	err = classifyError(&telegoapi.Error{ErrorCode: 400, Description: "Bad Request: chat not found"})
	if !errors.Is(err, ErrChatUnavailable) {
		t.Fatalf("expected ErrChatUnavailable, got: %v", err)
	}

	plain := errors.New("network down")
	if got := classifyError(plain); got != plain {
		t.Fatalf("unclassified error should pass through, got: %v", got)
	}
	if classifyError(nil) != nil {
		t.Fatalf("nil should classify to nil")
	}
}

func TestDeepLinkFormat(t *testing.T) {
	t.Parallel()

	link := BuildDeepLink("t.me", "sharebot", "tok-123")
	if link != "https://t.me/sharebot?start=tok-123" {
		t.Fatalf("unexpected deep link: %s", link)
	}

	join := BuildChannelLink("t.me", "newschannel")
	if join != "https://t.me/newschannel" {
		t.Fatalf("unexpected channel link: %s", join)
	}
}
