package gcp

import "testing"

func TestGetPublicURL(t *testing.T) {
	cases := []struct {
		name     string
		svc      *bucketService
		category BucketCategory
		key      string
		want     string
	}{
		{
			name:     "default gcs host",
			svc:      &bucketService{bucketName: "ponpa-media"},
			category: BucketCategoryTryOn,
			key:      "sess-1.png",
			want:     "https://storage.googleapis.com/ponpa-media/tryon/sess-1.png",
		},
		{
			name:     "cdn domain wins",
			svc:      &bucketService{bucketName: "ponpa-media", cdnDomain: "cdn.ponpa.app", publicBaseURL: "http://localhost:4443"},
			category: BucketCategoryAvatar,
			key:      "user-1.png",
			want:     "https://cdn.ponpa.app/avatars/user-1.png",
		},
		{
			name:     "explicit public base",
			svc:      &bucketService{bucketName: "ponpa-media", publicBaseURL: "http://localhost:4443"},
			category: BucketCategoryWardrobe,
			key:      "item-9.jpg",
			want:     "http://localhost:4443/ponpa-media/wardrobe/item-9.jpg",
		},
		{
			name:     "leading slash stripped",
			svc:      &bucketService{bucketName: "ponpa-media"},
			category: BucketCategoryTryOn,
			key:      "/sess-2.png",
			want:     "https://storage.googleapis.com/ponpa-media/tryon/sess-2.png",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.svc.GetPublicURL(tc.category, tc.key)
			if got != tc.want {
				t.Fatalf("GetPublicURL = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestContentTypeForKey(t *testing.T) {
	cases := map[string]string{
		"a.png":        "image/png",
		"a.JPG":        "image/jpeg",
		"a.jpeg":       "image/jpeg",
		"a.webp":       "image/webp",
		"a.png?x=1":    "image/png",
		"a.bin":        "",
		"":             "",
		"payload.json": "application/json",
	}
	for key, want := range cases {
		if got := contentTypeForKey(key); got != want {
			t.Fatalf("contentTypeForKey(%q) = %q, want %q", key, got, want)
		}
	}
}
