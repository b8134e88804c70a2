package analytics

// Event is a GA4 event name from the app's tracking vocabulary.
type Event string

const (
	EventSignUp Event = "sign_up"
	EventLogin  Event = "login"
	EventLogout Event = "logout"

	EventScanUpload         Event = "scan_upload"
	EventScanUploadStart    Event = "scan_upload_start"
	EventScanUploadComplete Event = "scan_upload_complete"
	EventScanUploadError    Event = "scan_upload_error"

	EventAnalysisStart    Event = "analysis_start"
	EventAnalysisComplete Event = "analysis_complete"
	EventAnalysisError    Event = "analysis_error"
	EventAnalysisView     Event = "analysis_view"
	EventShare            Event = "share"

	EventBeginCheckout         Event = "begin_checkout"
	EventPurchase              Event = "purchase"
	EventPurchaseCancelled     Event = "purchase_cancelled"
	EventSubscriptionUpgrade   Event = "subscription_upgrade"
	EventSubscriptionDowngrade Event = "subscription_downgrade"
	EventSubscriptionCancelled Event = "subscription_cancelled"

	EventAffiliateLinkClick   Event = "affiliate_link_click"
	EventAffiliateProductView Event = "affiliate_product_view"

	EventViewItem       Event = "view_item"
	EventAddToCart      Event = "add_to_cart"
	EventRemoveFromCart Event = "remove_from_cart"

	EventPageView      Event = "page_view"
	EventScreenView    Event = "screen_view"
	EventScroll        Event = "scroll"
	EventClick         Event = "click"
	EventFileDownload  Event = "file_download"
	EventVideoStart    Event = "video_start"
	EventVideoComplete Event = "video_complete"

	EventScanLimitReached Event = "scan_limit_reached"
	EventCameraUsed       Event = "camera_used"
	EventGalleryUsed      Event = "gallery_used"
	EventTipsViewed       Event = "tips_viewed"
	EventFormulaViewed    Event = "formula_viewed"

	// server only
	EventSubscriptionCreated Event = "subscription_created"
	EventSubscriptionUpdated Event = "subscription_updated"
	EventPurchaseFailed      Event = "purchase_failed"
)

var catalog = map[Event]struct{}{}

func init() {
	for _, e := range []Event{
		EventSignUp, EventLogin, EventLogout,
		EventScanUpload, EventScanUploadStart, EventScanUploadComplete, EventScanUploadError,
		EventAnalysisStart, EventAnalysisComplete, EventAnalysisError, EventAnalysisView, EventShare,
		EventBeginCheckout, EventPurchase, EventPurchaseCancelled,
		EventSubscriptionUpgrade, EventSubscriptionDowngrade, EventSubscriptionCancelled,
		EventAffiliateLinkClick, EventAffiliateProductView,
		EventViewItem, EventAddToCart, EventRemoveFromCart,
		EventPageView, EventScreenView, EventScroll, EventClick, EventFileDownload, EventVideoStart, EventVideoComplete,
		EventScanLimitReached, EventCameraUsed, EventGalleryUsed, EventTipsViewed, EventFormulaViewed,
		EventSubscriptionCreated, EventSubscriptionUpdated, EventPurchaseFailed,
	} {
		catalog[e] = struct{}{}
	}
}

// Known reports whether name is part of the catalog.
func Known(name string) bool {
	_, ok := catalog[Event(name)]
	return ok
}

// SubscriptionEventKind is the webhook-side lifecycle step being tracked.
type SubscriptionEventKind string

const (
	SubscriptionCreated          SubscriptionEventKind = "created"
	SubscriptionUpdated          SubscriptionEventKind = "updated"
	SubscriptionCancelled        SubscriptionEventKind = "cancelled"
	SubscriptionPaymentSucceeded SubscriptionEventKind = "payment_succeeded"
	SubscriptionPaymentFailed    SubscriptionEventKind = "payment_failed"
)

var subscriptionEvents = map[SubscriptionEventKind]Event{
	SubscriptionCreated:          EventSubscriptionCreated,
	SubscriptionUpdated:          EventSubscriptionUpdated,
	SubscriptionCancelled:        EventSubscriptionCancelled,
	SubscriptionPaymentSucceeded: EventPurchase,
	SubscriptionPaymentFailed:    EventPurchaseFailed,
}
