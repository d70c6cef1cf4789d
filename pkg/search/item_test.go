package search

import (
	"testing"

	"github.com/cvclon3/virascope/pkg/youtube"
)

func TestMatchesKind(t *testing.T) {
	tests := []struct {
		name  string
		video youtube.Video
		kind  Kind
		want  bool
	}{
		{
			name:  "long video matches videos",
			video: youtube.Video{Duration: 600, Title: "Documentary"},
			kind:  KindVideos,
			want:  true,
		},
		{
			name:  "sub-minute video excluded from videos",
			video: youtube.Video{Duration: 45, Title: "Clip"},
			kind:  KindVideos,
			want:  false,
		},
		{
			name:  "tagged video excluded from videos regardless of length",
			video: youtube.Video{Duration: 600, Title: "Best moments #Shorts"},
			kind:  KindVideos,
			want:  false,
		},
		{
			name:  "tag in description also excludes",
			video: youtube.Video{Duration: 600, Title: "Clip", Description: "subscribe! #SHORTS"},
			kind:  KindVideos,
			want:  false,
		},
		{
			name:  "two-minute video still counts as videos",
			video: youtube.Video{Duration: 120, Title: "Quick tip"},
			kind:  KindVideos,
			want:  true,
		},
		{
			name:  "two-minute video also counts as shorts",
			video: youtube.Video{Duration: 120, Title: "Quick tip"},
			kind:  KindShorts,
			want:  true,
		},
		{
			name:  "three-minute boundary is still shorts",
			video: youtube.Video{Duration: 180, Title: "Sketch"},
			kind:  KindShorts,
			want:  true,
		},
		{
			name:  "long untagged video is not shorts",
			video: youtube.Video{Duration: 181, Title: "Sketch"},
			kind:  KindShorts,
			want:  false,
		},
		{
			name:  "long tagged video is shorts",
			video: youtube.Video{Duration: 600, Title: "compilation #shorts"},
			kind:  KindShorts,
			want:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := matchesKind(tt.video, tt.kind); got != tt.want {
				t.Errorf("matchesKind(%q, %s) = %v, want %v", tt.video.Title, tt.kind, got, tt.want)
			}
		})
	}
}

func TestCombinedMetric(t *testing.T) {
	tests := []struct {
		name    string
		video   youtube.Video
		channel youtube.Channel
		want    float64
		wantNil bool
	}{
		{
			name:    "views over channel average",
			video:   youtube.Video{Views: 500},
			channel: youtube.Channel{Views: 1000, VideoCount: 10},
			want:    5.0,
		},
		{
			name:    "no channel average falls back to video views",
			video:   youtube.Video{Views: 200},
			channel: youtube.Channel{VideoCount: 0},
			want:    1.0,
		},
		{
			name:    "zero everywhere yields no metric",
			video:   youtube.Video{Views: 0},
			channel: youtube.Channel{VideoCount: 0},
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := combinedMetric(tt.video, &tt.channel)
			if tt.wantNil {
				if got != nil {
					t.Errorf("combinedMetric = %v, want nil", *got)
				}
				return
			}
			if got == nil {
				t.Fatal("combinedMetric = nil, want value")
			}
			if *got != tt.want {
				t.Errorf("combinedMetric = %v, want %v", *got, tt.want)
			}
		})
	}
}

func TestBuildItem_URLs(t *testing.T) {
	v := youtube.Video{ID: "vid-1", Views: 10}
	ch := &youtube.Channel{ID: "ch-1", Title: "C"}

	if got := buildItem(v, ch, false).VideoURL; got != "https://www.youtube.com/watch?v=vid-1" {
		t.Errorf("video URL = %q", got)
	}
	if got := buildItem(v, ch, true).VideoURL; got != "https://www.youtube.com/shorts/vid-1" {
		t.Errorf("shorts URL = %q", got)
	}
	if got := buildItem(v, ch, false).ChannelURL; got != "https://www.youtube.com/channel/ch-1" {
		t.Errorf("channel URL = %q", got)
	}
}
