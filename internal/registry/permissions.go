package registry

// Portal permissions in display order. RelatedModule is a lookup-only back
// reference into the module list.
var permissions = []Permission{
	{Key: "book_in_person", Name: "Book In-Person Sessions", NameAr: "حجز جلسات حضورية", Category: "booking", RelatedModule: "appointments"},
	{Key: "book_online", Name: "Book Online Sessions", NameAr: "حجز جلسات عن بعد", Category: "booking", RelatedModule: "appointments"},
	{Key: "request_cancellation", Name: "Request Cancellation", NameAr: "طلب إلغاء", Category: "booking", RelatedModule: "appointments"},
	{Key: "view_exercise_videos", Name: "View Exercise Videos", NameAr: "مشاهدة فيديوهات التمارين", Category: "wellness", RelatedModule: "exercises"},
	{Key: "progress_tracking", Name: "Progress Tracking", NameAr: "تتبع التقدم", Category: "wellness", RelatedModule: "journey"},
	{Key: "download_reports", Name: "Download Reports", NameAr: "تحميل التقارير", Category: "clinical", RelatedModule: "records"},
	{Key: "upload_documents", Name: "Upload Documents", NameAr: "رفع المستندات", Category: "clinical", RelatedModule: "documents"},
	{Key: "chat_with_clinician", Name: "Chat With Clinician", NameAr: "المحادثة مع المعالج", Category: "engagement", RelatedModule: "messages"},
	{Key: "view_invoices", Name: "View Invoices", NameAr: "عرض الفواتير", Category: "billing", RelatedModule: "billing"},
}
