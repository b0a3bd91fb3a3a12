package model

import "time"

// ContactInquiry is a message left through the public contact form
// (`contact` table).
type ContactInquiry struct {
	ID             uint64     `json:"id"`
	FullName       string     `json:"full_name"`
	Email          string     `json:"email"`
	Phone          string     `json:"phone"`
	BestReason     StringList `json:"best_reason"`
	InquirySubject string     `json:"inquiry_subject"`
	InquiryMessage string     `json:"inquiry_message"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Hero is a page banner (`hero` table).  PageType lists the pages the banner
// applies to, e.g. ["contact", "about"].
type Hero struct {
	ID        uint64     `json:"id"`
	Title     string     `json:"title"`
	Subtitle  string     `json:"subtitle"`
	PageType  StringList `json:"page_type"`
	ImageURLs StringList `json:"image_urls"`
	CreatedAt time.Time  `json:"created_at"`
}

// DefaultHero is served when no banner is configured for a page.
func DefaultHero(page string) Hero {
	return Hero{
		Title:     "Get in Touch",
		Subtitle:  "Our team is here to assist you with buying, selling, or investing in premium real estate.",
		PageType:  StringList{page},
		ImageURLs: StringList{},
	}
}
